package input

import (
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/fwojciec/harvest"
)

// Content CSV columns.
const (
	ColumnEpoch        = "epoch"
	ColumnIsAttachment = "isAttachment"
	ColumnEntityType   = "entityType"
	ColumnTitle        = "Title"
	ColumnTitleEnglish = "Title_eng"
	ColumnMsgID        = "msgId"
	ColumnLot          = "lot"
	ColumnAttachment   = "u"
	ColumnDate         = "DATE"
	ColumnKeyword      = "Keyword"
	ColumnExtension    = "extension"
)

// Entity types.
const (
	EntityEmail = "Email"
	EntityVoice = "Voice"
	EntityChat  = "Chat"
)

// ContentOptions configures ReadContent.
type ContentOptions struct {
	// BaseURL is the API root and must end with a slash.
	BaseURL string
	Mission string

	// IncludeAttachments keeps attachment rows, fetched from the path in
	// the "u" column. They are skipped by default.
	IncludeAttachments bool
}

// ContentInput is the outcome of reading a content CSV.
type ContentInput struct {
	Descriptors []harvest.Descriptor

	// Attachments, Superseded and Unroutable count dropped rows: attachment
	// rows, emails replaced by a later email with the same title, and rows
	// whose entity type has no URL.
	Attachments int
	Superseded  int
	Unroutable  int
}

type contentRow struct {
	row   []string
	epoch int64
}

// ReadContent reads message rows and builds one descriptor per message.
//
// Non-email rows keep their input order and come first. Emails follow,
// newest first, with only the latest email kept for each title.
func ReadContent(r io.Reader, opts ContentOptions) (*ContentInput, error) {
	t, err := readTable(r)
	if err != nil {
		return nil, err
	}
	if err := t.require(ColumnEntityType, ColumnMsgID); err != nil {
		return nil, err
	}

	in := &ContentInput{}
	var others, emails []contentRow
	for _, row := range t.rows {
		if truthy(t.get(row, ColumnIsAttachment)) && !opts.IncludeAttachments {
			in.Attachments++
			continue
		}
		epoch, _ := strconv.ParseInt(t.get(row, ColumnEpoch), 10, 64)
		cr := contentRow{row: row, epoch: epoch}
		if t.get(row, ColumnEntityType) == EntityEmail {
			emails = append(emails, cr)
		} else {
			others = append(others, cr)
		}
	}

	sort.SliceStable(emails, func(i, j int) bool { return emails[i].epoch > emails[j].epoch })
	seenTitle := make(map[string]bool, len(emails))
	latest := emails[:0]
	for _, e := range emails {
		title := t.get(e.row, ColumnTitle)
		if seenTitle[title] {
			in.Superseded++
			continue
		}
		seenTitle[title] = true
		latest = append(latest, e)
	}

	for _, cr := range append(others, latest...) {
		d, ok := contentDescriptor(t, cr.row, opts)
		if !ok {
			in.Unroutable++
			continue
		}
		in.Descriptors = append(in.Descriptors, d)
	}
	return in, nil
}

func contentDescriptor(t *table, row []string, opts ContentOptions) (harvest.Descriptor, bool) {
	u := ContentURL(opts.BaseURL, opts.Mission, Message{
		EntityType:   t.get(row, ColumnEntityType),
		MsgID:        t.get(row, ColumnMsgID),
		Lot:          t.get(row, ColumnLot),
		Attachment:   t.get(row, ColumnAttachment),
		IsAttachment: truthy(t.get(row, ColumnIsAttachment)),
	})
	if u == "" {
		return harvest.Descriptor{}, false
	}

	title := t.get(row, ColumnTitleEnglish)
	if title == "" {
		title = t.get(row, ColumnTitle)
	}
	meta := map[string]string{
		ColumnDate:         t.get(row, ColumnDate),
		ColumnKeyword:      t.get(row, ColumnKeyword),
		ColumnMsgID:        t.get(row, ColumnMsgID),
		ColumnIsAttachment: strconv.FormatBool(truthy(t.get(row, ColumnIsAttachment))),
		"Title":            title,
		"Extension":        t.get(row, ColumnExtension),
		"URL":              u,
	}

	var key []string
	for _, c := range []string{ColumnDate, ColumnKeyword, ColumnMsgID} {
		if v := t.get(row, c); v != "" {
			key = append(key, v)
		}
	}

	return harvest.Descriptor{
		URL:  u,
		Key:  strings.Join(key, "/"),
		Meta: meta,
	}, true
}

// Message identifies one archived message.
type Message struct {
	EntityType   string
	MsgID        string
	Lot          string
	Attachment   string // API path of an attachment, relative to the API root
	IsAttachment bool
}

// ContentURL returns the URL serving a message's content, or "" if the
// entity type is not fetchable.
func ContentURL(baseURL, mission string, m Message) string {
	if m.IsAttachment {
		if m.Attachment == "" {
			return ""
		}
		return baseURL + "api/" + strings.TrimPrefix(m.Attachment, "/")
	}

	switch m.EntityType {
	case EntityEmail:
		return baseURL + "api/" + mission + "/eml-embed/" + m.Lot + "/" + m.MsgID + "/Email.txt?highlight=queue="
	case EntityVoice:
		return baseURL + "api/" + mission + "/vox/" + m.MsgID + "/"
	case EntityChat:
		return baseURL + "api/" + mission + "/bbg/" + m.MsgID + "/Chat.txt?"
	default:
		return ""
	}
}
