// Package merge turns a submitted merge form into one PDF: it parses the
// upload, decodes every document, splices attachment pages into the template
// and serves the result over HTTP.
package merge

import (
	"context"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zeptools/pdf-joiner/audit"
	"github.com/zeptools/pdf-joiner/doctypes"
	"github.com/zeptools/pdf-joiner/pdfs"
	"github.com/zeptools/pdf-joiner/splice"
)

const auditTimeout = 5 * time.Second

type Service struct {
	Catalog  *doctypes.Catalog
	Recorder audit.Recorder   // nil disables the audit trail
	Now      func() time.Time // nil means time.Now
}

// Result is a finished merge
type Result struct {
	PDF           []byte
	TemplatePages int
	OutputPages   int
	Order         []string // doc type ids in output order
}

func NewService(cat *doctypes.Catalog, recorder audit.Recorder) *Service {
	return &Service{Catalog: cat, Recorder: recorder}
}

// Merge validates sub, decodes its documents concurrently and assembles the
// merged PDF. Insertion indices are checked before any PDF is decoded.
func (s *Service) Merge(ctx context.Context, sub *Submission) (*Result, error) {
	plan := make([]splice.Request[pdfs.Page], len(sub.Attachments))
	for i, att := range sub.Attachments {
		plan[i] = splice.Request[pdfs.Page]{DocTypeID: att.DocTypeID, Index: att.Index}
	}
	resolved, err := splice.Resolve(s.Catalog, plan)
	if err != nil {
		return nil, err
	}

	tplDoc, attDocs, err := decodeAll(ctx, sub)
	if err != nil {
		return nil, err
	}
	for i := range plan {
		plan[i].Pages = attDocs[i].Pages()
	}

	pages, err := splice.Splice(s.Catalog, tplDoc.Pages(), plan)
	if err != nil {
		return nil, err
	}
	out, err := pdfs.Assemble(pages)
	if err != nil {
		return nil, err
	}

	res := &Result{
		PDF:           out,
		TemplatePages: tplDoc.PageCount(),
		OutputPages:   len(pages),
		Order:         make([]string, len(resolved)),
	}
	pageCounts := make(map[string]int, len(plan))
	for _, req := range plan {
		pageCounts[req.DocTypeID] = len(req.Pages)
	}
	inserted := make([]audit.Inserted, len(resolved))
	for i, r := range resolved {
		res.Order[i] = r.DocTypeID
		inserted[i] = audit.Inserted{DocTypeID: r.DocTypeID, Requested: r.Requested, Pages: pageCounts[r.DocTypeID]}
	}
	log.Printf("[INFO][MERGE] %s: template %d pages + %v -> %d pages, %d bytes",
		sub.ClientIP, res.TemplatePages, res.Order, res.OutputPages, len(out))

	s.record(ctx, audit.Record{
		At:            s.now(),
		ClientIP:      sub.ClientIP,
		TemplatePages: res.TemplatePages,
		Inserted:      inserted,
		OutputPages:   res.OutputPages,
		OutputBytes:   len(out),
		Digest:        audit.Fingerprint(out),
	})
	return res, nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// record never fails the merge; the client already has a valid document
func (s *Service) record(ctx context.Context, rec audit.Record) {
	if s.Recorder == nil {
		return
	}
	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditTimeout)
	defer cancel()
	if err := s.Recorder.Record(actx, rec); err != nil {
		log.Printf("[ERROR][AUDIT] recording merge for %s: %v", rec.ClientIP, err)
	}
}

// decodeAll decodes the template and every attachment in parallel.
// attDocs follows sub.Attachments.
func decodeAll(ctx context.Context, sub *Submission) (*pdfs.Document, []*pdfs.Document, error) {
	g, gctx := errgroup.WithContext(ctx)
	var tplDoc *pdfs.Document
	attDocs := make([]*pdfs.Document, len(sub.Attachments))

	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		doc, err := pdfs.Decode(TemplateField, sub.Template.Data)
		if err != nil {
			return err
		}
		tplDoc = doc
		return nil
	})
	for i, att := range sub.Attachments {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			doc, err := pdfs.Decode(att.DocTypeID, att.Data)
			if err != nil {
				return err
			}
			attDocs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return tplDoc, attDocs, nil
}
