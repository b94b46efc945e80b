package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/joseph-ayodele/payment-orchestrator/constants"
	"github.com/joseph-ayodele/payment-orchestrator/internal/entity"
)

type documentWire struct {
	ID                   string               `json:"id"`
	Name                 string               `json:"name"`
	PageCount            int                  `json:"pageCount"`
	Progress             string               `json:"progress"`
	SourceClassification string               `json:"sourceClassification"`
	CreationDate         int64                `json:"creationDate"`
	Links                entity.DocumentLinks `json:"_links"`
}

type extractionWire struct {
	Entity     string      `json:"entity"`
	Value      string      `json:"value"`
	Box        *entity.Box `json:"box,omitempty"`
	Candidates string      `json:"candidates,omitempty"`
}

type extractionsWire struct {
	Extractions         map[string]extractionWire              `json:"extractions"`
	CompoundExtractions map[string][]map[string]extractionWire `json:"compoundExtractions,omitempty"`
}

type feedbackWire struct {
	Feedback            map[string]extractionWire              `json:"feedback"`
	CompoundExtractions map[string][]map[string]extractionWire `json:"compoundExtractions,omitempty"`
}

// FetchDocument fetches document metadata.
func (c *Client) FetchDocument(ctx context.Context, id string) (*entity.Document, error) {
	const op = "fetchDocument"
	resp, err := c.send(ctx, request{op: op, method: http.MethodGet, url: c.documentURL(id)})
	if err != nil {
		return nil, err
	}
	var w documentWire
	if err := c.decode(op, documentSchema, resp.Body, &w); err != nil {
		return nil, err
	}
	doc := &entity.Document{
		ID:                   w.ID,
		Name:                 w.Name,
		PageCount:            w.PageCount,
		Progress:             w.Progress,
		SourceClassification: w.SourceClassification,
		Links:                w.Links,
	}
	if w.CreationDate > 0 {
		doc.CreationDate = time.UnixMilli(w.CreationDate).UTC()
	}
	return doc, nil
}

// Extractions fetches the extractions of doc, following its extractions link
// when the backend supplied one.
func (c *Client) Extractions(ctx context.Context, doc entity.Document) (*entity.ExtractionResult, error) {
	const op = "extractions"
	u := doc.Links.Extractions
	if u == "" {
		u = c.documentURL(doc.ID) + "/extractions"
	}
	resp, err := c.send(ctx, request{op: op, method: http.MethodGet, url: u})
	if err != nil {
		return nil, err
	}
	var w extractionsWire
	if err := c.decode(op, extractionsSchema, resp.Body, &w); err != nil {
		return nil, err
	}
	result := &entity.ExtractionResult{Extractions: flatten(w.Extractions)}
	for _, group := range w.CompoundExtractions[constants.PaymentGroup] {
		result.Payment = append(result.Payment, flatten(group))
	}
	return result, nil
}

// SubmitFeedback sends the user-confirmed extraction values back for doc.
func (c *Client) SubmitFeedback(ctx context.Context, doc entity.Document, feedback entity.ExtractionResult) error {
	const op = "submitFeedback"
	body := feedbackWire{Feedback: toWireMap(feedback.Extractions)}
	if len(feedback.Payment) > 0 {
		groups := make([]map[string]extractionWire, 0, len(feedback.Payment))
		for _, g := range feedback.Payment {
			groups = append(groups, toWireMap(g))
		}
		body.CompoundExtractions = map[string][]map[string]extractionWire{constants.PaymentGroup: groups}
	}
	u := c.documentURL(doc.ID) + "/extractions/feedback"
	_, err := c.send(ctx, request{op: op, method: http.MethodPut, url: u, body: body})
	return err
}

// Preview downloads the rendered image of a document page (1-based).
func (c *Client) Preview(ctx context.Context, documentID string, page int) ([]byte, error) {
	u := fmt.Sprintf("%s/pages/%d/large", c.documentURL(documentID), page)
	return c.binary(ctx, "preview", u, constants.MediaTypeJPEG+", "+constants.MediaTypePNG)
}

func (c *Client) documentURL(id string) string {
	return c.documentBaseURL + "/documents/" + url.PathEscape(id)
}

// flatten turns the name-keyed wire map into a name-sorted list.
func flatten(m map[string]extractionWire) []entity.Extraction {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]entity.Extraction, 0, len(names))
	for _, name := range names {
		w := m[name]
		out = append(out, entity.Extraction{
			Name:       constants.ExtractionName(name),
			Entity:     w.Entity,
			Value:      w.Value,
			Box:        w.Box,
			Candidates: w.Candidates,
		})
	}
	return out
}

// toWireMap keeps the first extraction per name.
func toWireMap(list []entity.Extraction) map[string]extractionWire {
	out := make(map[string]extractionWire, len(list))
	for _, e := range list {
		name := string(e.Name)
		if _, seen := out[name]; seen {
			continue
		}
		out[name] = extractionWire{Entity: e.Entity, Value: e.Value, Box: e.Box}
	}
	return out
}
