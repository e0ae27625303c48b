// Package submission turns an approved draft into a deliverable artifact and
// hands it to whatever accepts coursework.
package submission

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	types "github.com/yungbote/draftbridge-backend/internal/domain"
	"github.com/yungbote/draftbridge-backend/internal/platform/envutil"
	"github.com/yungbote/draftbridge-backend/internal/platform/logger"
	"github.com/yungbote/draftbridge-backend/internal/platform/sendgrid"
)

// ArchivedPrefix marks a submission that was stored but not delivered.
const ArchivedPrefix = "archived:"

type Artifact struct {
	Data        []byte
	ContentType string
	Ext         string
}

// Finalizer renders the final content and submits the stored artifact. It
// returns an opaque reference recorded on the draft.
type Finalizer interface {
	RenderPDF(ctx context.Context, a *types.Assignment, d *types.Draft, content string) (Artifact, error)
	Submit(ctx context.Context, a *types.Assignment, key string, art Artifact) (string, error)
}

type Config struct {
	EmailTo []string
}

func ConfigFromEnv(log *logger.Logger) Config {
	raw := envutil.String("SUBMISSION_EMAIL_TO", "", log)
	var to []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			to = append(to, s)
		}
	}
	return Config{EmailTo: to}
}

type finalizer struct {
	log    *logger.Logger
	mailer sendgrid.Client
	cfg    Config
}

// New returns the default Finalizer. The artifact is a markdown document;
// delivery goes by email when mailer is set and recipients are configured,
// otherwise the object store copy is the submission.
func New(log *logger.Logger, mailer sendgrid.Client, cfg Config) Finalizer {
	return &finalizer{log: log.With("component", "Finalizer"), mailer: mailer, cfg: cfg}
}

func (f *finalizer) RenderPDF(ctx context.Context, a *types.Assignment, d *types.Draft, content string) (Artifact, error) {
	if a == nil || d == nil {
		return Artifact{}, errors.New("render: assignment and draft required")
	}
	body := strings.TrimSpace(content)
	if body == "" {
		return Artifact{}, errors.New("render: final content is empty")
	}
	var b strings.Builder
	b.WriteString("# ")
	b.WriteString(strings.TrimSpace(a.Title))
	b.WriteString("\n\n")
	if a.DueAt != nil {
		fmt.Fprintf(&b, "_Due %s_\n\n", a.DueAt.UTC().Format(time.RFC1123))
	}
	b.WriteString(body)
	b.WriteString("\n")
	return Artifact{Data: []byte(b.String()), ContentType: "text/markdown; charset=utf-8", Ext: "md"}, nil
}

func (f *finalizer) Submit(ctx context.Context, a *types.Assignment, key string, art Artifact) (string, error) {
	if len(art.Data) == 0 {
		return "", errors.New("submit: empty artifact")
	}
	if f.mailer == nil || len(f.cfg.EmailTo) == 0 {
		f.log.Info("submission archived", "assignment_id", a.ID, "key", key)
		return ArchivedPrefix + key, nil
	}
	to := make([]sendgrid.Address, 0, len(f.cfg.EmailTo))
	for _, e := range f.cfg.EmailTo {
		to = append(to, sendgrid.Address{Email: e})
	}
	res, err := f.mailer.Send(ctx, sendgrid.Message{
		To:      to,
		Subject: "Submission: " + strings.TrimSpace(a.Title),
		Text:    fmt.Sprintf("Attached is the submission for %q.", strings.TrimSpace(a.Title)),
		Attachments: []sendgrid.Attachment{{
			Filename: fileName(a.Title, art.Ext),
			MIMEType: art.ContentType,
			Content:  art.Data,
		}},
	})
	if err != nil {
		return "", fmt.Errorf("submit: %w", err)
	}
	ref := "email:" + key
	if res != nil && res.MessageID != "" {
		ref = "email:" + res.MessageID
	}
	f.log.Info("submission emailed", "assignment_id", a.ID, "recipients", len(to), "ref", ref)
	return ref, nil
}

func fileName(title, ext string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteRune('-')
		}
	}
	name := strings.Trim(b.String(), "-")
	if name == "" {
		name = "submission"
	}
	return name + "." + strings.TrimPrefix(ext, ".")
}
