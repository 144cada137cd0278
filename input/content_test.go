package input_test

import (
	"strings"
	"testing"

	"github.com/fwojciec/harvest"
	"github.com/fwojciec/harvest/input"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const base = "https://archive.example.com/"

func TestReadContent(t *testing.T) {
	t.Parallel()

	t.Run("builds urls per entity type", func(t *testing.T) {
		t.Parallel()

		csv := "\ufeffepoch,isAttachment,entityType,Title,Title_eng,msgId,lot,u,DATE,Keyword,extension\n" +
			"100,False,Voice,Call,Call EN,v1,,,2024-01-01,refund,wav\n" +
			"200,False,Chat,Chat,Chat EN,c1,,,2024-01-02,refund,txt\n" +
			"300,False,Email,Hello,Hello EN,e1,L7,,2024-01-03,refund,eml\n"

		in, err := input.ReadContent(strings.NewReader(csv), input.ContentOptions{BaseURL: base, Mission: "M1"})

		require.NoError(t, err)
		require.Len(t, in.Descriptors, 3)
		assert.Equal(t, base+"api/M1/vox/v1/", in.Descriptors[0].URL)
		assert.Equal(t, base+"api/M1/bbg/c1/Chat.txt?", in.Descriptors[1].URL)
		assert.Equal(t, base+"api/M1/eml-embed/L7/e1/Email.txt?highlight=queue=", in.Descriptors[2].URL)

		d := in.Descriptors[0]
		assert.Equal(t, "2024-01-01/refund/v1", d.Key)
		assert.Equal(t, "Call EN", d.Meta["Title"])
		assert.Equal(t, "wav", d.Meta["Extension"])
		assert.Equal(t, "2024-01-01", d.Meta["DATE"])
		assert.Equal(t, "refund", d.Meta["Keyword"])
		assert.Equal(t, "v1", d.Meta["msgId"])
		assert.Equal(t, "false", d.Meta["isAttachment"])
	})

	t.Run("keeps only the latest email per title", func(t *testing.T) {
		t.Parallel()

		csv := "epoch,isAttachment,entityType,Title,msgId,lot\n" +
			"100,false,Email,Invoice,old,L1\n" +
			"300,false,Email,Invoice,new,L1\n" +
			"200,false,Email,Other,other,L1\n" +
			"50,false,Voice,Invoice,voice,\n"

		in, err := input.ReadContent(strings.NewReader(csv), input.ContentOptions{BaseURL: base, Mission: "M1"})

		require.NoError(t, err)
		var ids []string
		for _, d := range in.Descriptors {
			ids = append(ids, d.Meta["msgId"])
		}
		assert.Equal(t, []string{"voice", "new", "other"}, ids)
		assert.Equal(t, 1, in.Superseded)
	})

	t.Run("skips attachments by default", func(t *testing.T) {
		t.Parallel()

		csv := "epoch,isAttachment,entityType,Title,msgId,u\n" +
			"1,True,Email,Doc,a1,M1/att/a1.pdf\n" +
			"2,False,Voice,Call,v1,\n"

		in, err := input.ReadContent(strings.NewReader(csv), input.ContentOptions{BaseURL: base, Mission: "M1"})
		require.NoError(t, err)
		require.Len(t, in.Descriptors, 1)
		assert.Equal(t, 1, in.Attachments)

		in, err = input.ReadContent(strings.NewReader(csv), input.ContentOptions{BaseURL: base, Mission: "M1", IncludeAttachments: true})
		require.NoError(t, err)
		require.Len(t, in.Descriptors, 2)
		assert.Equal(t, base+"api/M1/att/a1.pdf", in.Descriptors[1].URL)
		assert.Equal(t, "true", in.Descriptors[1].Meta["isAttachment"])
	})

	t.Run("counts rows with unknown entity types", func(t *testing.T) {
		t.Parallel()

		csv := "epoch,isAttachment,entityType,Title,msgId\n" +
			"1,false,Fax,Scan,f1\n"

		in, err := input.ReadContent(strings.NewReader(csv), input.ContentOptions{BaseURL: base, Mission: "M1"})

		require.NoError(t, err)
		assert.Empty(t, in.Descriptors)
		assert.Equal(t, 1, in.Unroutable)
	})

	t.Run("requires entity type and message id columns", func(t *testing.T) {
		t.Parallel()

		_, err := input.ReadContent(strings.NewReader("epoch,Title\n1,x\n"), input.ContentOptions{})

		assert.Equal(t, harvest.EINVALID, harvest.ErrorCode(err))
		assert.Contains(t, harvest.ErrorMessage(err), "entityType")
	})

	t.Run("rejects empty input", func(t *testing.T) {
		t.Parallel()

		_, err := input.ReadContent(strings.NewReader(""), input.ContentOptions{})

		assert.Equal(t, harvest.EINVALID, harvest.ErrorCode(err))
	})
}

func TestContentURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		msg  input.Message
		want string
	}{
		{"email", input.Message{EntityType: "Email", MsgID: "9", Lot: "3"}, base + "api/M/eml-embed/3/9/Email.txt?highlight=queue="},
		{"voice", input.Message{EntityType: "Voice", MsgID: "9"}, base + "api/M/vox/9/"},
		{"chat", input.Message{EntityType: "Chat", MsgID: "9"}, base + "api/M/bbg/9/Chat.txt?"},
		{"attachment", input.Message{EntityType: "Email", IsAttachment: true, Attachment: "/M/a/1"}, base + "api/M/a/1"},
		{"attachment without path", input.Message{IsAttachment: true}, ""},
		{"unknown", input.Message{EntityType: "Fax", MsgID: "9"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, input.ContentURL(base, "M", tt.msg))
		})
	}
}
