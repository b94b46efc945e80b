// Package fakeapi is an in-memory implementation of the document and payment
// backends, served over HTTP with gorilla/mux.
package fakeapi

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/joseph-ayodele/payment-orchestrator/constants"
	"github.com/joseph-ayodele/payment-orchestrator/internal/entity"
)

// Operation names, matching the client's op labels.
const (
	OpToken                = "token"
	OpPaymentProviders     = "paymentProviders"
	OpCreatePaymentRequest = "createPaymentRequest"
	OpPaymentRequest       = "paymentRequest"
	OpPDFWithQRCode        = "pdfWithQRCode"
	OpQRCodeImage          = "qrCodeImage"
	OpFetchDocument        = "fetchDocument"
	OpExtractions          = "extractions"
	OpSubmitFeedback       = "submitFeedback"
	OpPreview              = "preview"
)

// PNGSignature prefixes every image the backend serves.
var PNGSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

type storedRequest struct {
	ID                     string `json:"-"`
	SourceDocumentLocation string `json:"sourceDocumentLocation,omitempty"`
	PaymentProvider        string `json:"paymentProvider"`
	Recipient              string `json:"recipient"`
	IBAN                   string `json:"iban"`
	BIC                    string `json:"bic,omitempty"`
	Amount                 string `json:"amount"`
	Purpose                string `json:"purpose"`
	Status                 string `json:"status"`
	RequesterURI           string `json:"requesterUri,omitempty"`
	CreatedAt              string `json:"createdAt"`
}

type storedDocument struct {
	doc         entity.Document
	extractions entity.ExtractionResult
	pages       map[int][]byte
}

// Feedback is one feedback submission as received.
type Feedback struct {
	DocumentID          string                                 `json:"-"`
	Feedback            map[string]map[string]any              `json:"feedback"`
	CompoundExtractions map[string][]map[string]map[string]any `json:"compoundExtractions,omitempty"`
}

// Value returns the submitted value for name in the flat feedback.
func (f Feedback) Value(name constants.ExtractionName) string {
	v, _ := f.Feedback[string(name)]["value"].(string)
	return v
}

// Backend holds the fake server state. The zero value is not usable; call New.
type Backend struct {
	mu        sync.Mutex
	providers []entity.PaymentProvider
	documents map[string]*storedDocument
	requests  map[string]*storedRequest
	order     []string
	feedback  []Feedback
	calls     map[string]int
	failures  map[string][]int

	clientID     string
	clientSecret string
	tokens       map[string]bool
	tokenTTL     time.Duration
	latency      time.Duration
	locationOnly bool

	logger *slog.Logger
}

// New creates an empty backend.
func New(logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		documents:    make(map[string]*storedDocument),
		requests:     make(map[string]*storedRequest),
		calls:        make(map[string]int),
		failures:     make(map[string][]int),
		tokens:       make(map[string]bool),
		tokenTTL:     time.Hour,
		locationOnly: true,
		logger:       logger,
	}
}

// RequireClient enables bearer authentication with the given credentials.
func (b *Backend) RequireClient(id, secret string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clientID, b.clientSecret = id, secret
}

// SetTokenTTL changes the expires_in of issued tokens.
func (b *Backend) SetTokenTTL(ttl time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokenTTL = ttl
}

// SetLatency delays every response.
func (b *Backend) SetLatency(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.latency = d
}

// SetReturnIDInBody makes request creation answer with an {id} body
// instead of only a Location header.
func (b *Backend) SetReturnIDInBody(v bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.locationOnly = !v
}

// AddProvider appends a provider to the list.
func (b *Backend) AddProvider(p entity.PaymentProvider) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.providers = append(b.providers, p)
}

// SetProviders replaces the provider list.
func (b *Backend) SetProviders(ps []entity.PaymentProvider) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.providers = append([]entity.PaymentProvider(nil), ps...)
}

// AddDocument registers a document and its extractions.
func (b *Backend) AddDocument(doc entity.Document, extractions entity.ExtractionResult) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if doc.PageCount == 0 {
		doc.PageCount = 1
	}
	if doc.CreationDate.IsZero() {
		doc.CreationDate = time.Now().UTC()
	}
	b.documents[doc.ID] = &storedDocument{doc: doc, extractions: extractions, pages: map[int][]byte{}}
}

// FailNext makes the next n calls of op answer with status.
func (b *Backend) FailNext(op string, status, n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := 0; i < n; i++ {
		b.failures[op] = append(b.failures[op], status)
	}
}

// Calls returns how often op was served.
func (b *Backend) Calls(op string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[op]
}

// Feedback returns every feedback submission received, oldest first.
func (b *Backend) Feedback() []Feedback {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Feedback(nil), b.feedback...)
}

// RequestIDs returns created payment request ids in creation order.
func (b *Backend) RequestIDs() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.order...)
}

// Router exposes every endpoint on one router.
func (b *Backend) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/oauth/token", b.wrap(OpToken, false, b.handleToken)).Methods("POST")
	r.HandleFunc("/paymentProviders", b.wrap(OpPaymentProviders, true, b.handleProviders)).Methods("GET")
	r.HandleFunc("/paymentRequests", b.wrap(OpCreatePaymentRequest, true, b.handleCreateRequest)).Methods("POST")
	r.HandleFunc("/paymentRequests/{id}", b.handlePaymentRequest).Methods("GET")
	r.HandleFunc("/documents/{id}", b.wrap(OpFetchDocument, true, b.handleDocument)).Methods("GET")
	r.HandleFunc("/documents/{id}/extractions", b.wrap(OpExtractions, true, b.handleExtractions)).Methods("GET")
	r.HandleFunc("/documents/{id}/extractions/feedback", b.wrap(OpSubmitFeedback, true, b.handleFeedback)).Methods("PUT")
	r.HandleFunc("/documents/{id}/pages/{page:[0-9]+}/large", b.wrap(OpPreview, true, b.handlePreview)).Methods("GET")
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if _, err := fmt.Fprintln(w, "OK"); err != nil {
			b.logger.Warn("fakeapi.health.write_error", "error", err)
		}
	}).Methods("GET")
	return r
}

// handlePaymentRequest dispatches on Accept, the backend serves JSON, PDF and
// PNG renditions of a request from the same path.
func (b *Backend) handlePaymentRequest(w http.ResponseWriter, r *http.Request) {
	accept := r.Header.Get("Accept")
	switch {
	case strings.Contains(accept, constants.MediaTypePDF):
		b.wrap(OpPDFWithQRCode, true, b.handlePDF)(w, r)
	case strings.Contains(accept, constants.MediaTypePNG):
		b.wrap(OpQRCodeImage, true, b.handleQRImage)(w, r)
	default:
		b.wrap(OpPaymentRequest, true, b.handleGetRequest)(w, r)
	}
}

func (b *Backend) wrap(op string, auth bool, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.calls[op]++
		latency := b.latency
		var status int
		if q := b.failures[op]; len(q) > 0 {
			status, b.failures[op] = q[0], q[1:]
		}
		needAuth := auth && b.clientID != ""
		authorized := !needAuth || b.tokens[strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")]
		b.mu.Unlock()

		if latency > 0 {
			select {
			case <-time.After(latency):
			case <-r.Context().Done():
				return
			}
		}
		if !authorized {
			writeError(w, http.StatusUnauthorized, "invalid or missing token")
			return
		}
		if status != 0 {
			b.logger.Debug("fakeapi.injected_failure", "op", op, "status", status)
			writeError(w, status, "injected failure")
			return
		}
		h(w, r)
	}
}

func (b *Backend) handleToken(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("grant_type") != "client_credentials" {
		writeError(w, http.StatusBadRequest, "unsupported grant_type")
		return
	}
	id, secret, ok := r.BasicAuth()
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.clientID != "" && (!ok || id != b.clientID || secret != b.clientSecret) {
		writeError(w, http.StatusUnauthorized, "invalid client")
		return
	}
	tok := uuid.NewString()
	b.tokens[tok] = true
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": tok,
		"token_type":   "bearer",
		"expires_in":   int64(b.tokenTTL / time.Second),
		"scope":        "read write",
	})
}

func (b *Backend) handleProviders(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	list := make([]map[string]any, 0, len(b.providers))
	for _, p := range b.providers {
		item := map[string]any{
			"id":                         p.ID,
			"name":                       p.Name,
			"iconLocation":               p.IconLocation,
			"colors":                     map[string]string{"background": p.Colors.Background, "text": p.Colors.Text},
			"appSchemeIOS":               p.AppSchemeIOS,
			"universalLinkIOS":           p.UniversalLinkIOS,
			"minAppVersion":              map[string]string{"ios": p.MinAppVersion},
			"gpcSupportedPlatforms":      platforms(p.GPCSupportedPlatforms),
			"openWithSupportedPlatforms": platforms(p.OpenWithSupportedPlatforms),
		}
		if p.Index != 0 {
			item["index"] = p.Index
		}
		list = append(list, item)
	}
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, list)
}

func (b *Backend) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	var req storedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.PaymentProvider == "" || req.IBAN == "" || req.Amount == "" {
		writeError(w, http.StatusBadRequest, "paymentProvider, iban and amount are required")
		return
	}
	b.mu.Lock()
	known := false
	for _, p := range b.providers {
		if p.ID == req.PaymentProvider {
			known = true
			break
		}
	}
	if !known {
		b.mu.Unlock()
		writeError(w, http.StatusBadRequest, "unknown payment provider")
		return
	}
	req.ID = uuid.NewString()
	req.Status = "OPEN"
	req.RequesterURI = "ginipay-business://"
	req.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	b.requests[req.ID] = &req
	b.order = append(b.order, req.ID)
	locationOnly := b.locationOnly
	b.mu.Unlock()

	w.Header().Set("Location", requestURL(r, req.ID))
	if locationOnly {
		w.WriteHeader(http.StatusCreated)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": req.ID})
}

func (b *Backend) lookupRequest(w http.ResponseWriter, r *http.Request) (*storedRequest, bool) {
	id := mux.Vars(r)["id"]
	b.mu.Lock()
	defer b.mu.Unlock()
	req, ok := b.requests[id]
	if !ok {
		writeError(w, http.StatusNotFound, "payment request not found")
		return nil, false
	}
	cp := *req
	return &cp, true
}

func (b *Backend) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	req, ok := b.lookupRequest(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (b *Backend) handlePDF(w http.ResponseWriter, r *http.Request) {
	req, ok := b.lookupRequest(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", constants.MediaTypePDF)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, RenderPDF(req.ID, req.Recipient, req.Amount))
}

func (b *Backend) handleQRImage(w http.ResponseWriter, r *http.Request) {
	req, ok := b.lookupRequest(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", constants.MediaTypePNG)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(append(append([]byte{}, PNGSignature...), []byte(req.ID)...))
}

func (b *Backend) lookupDocument(w http.ResponseWriter, r *http.Request) (*storedDocument, bool) {
	id := mux.Vars(r)["id"]
	b.mu.Lock()
	defer b.mu.Unlock()
	d, ok := b.documents[id]
	if !ok {
		writeError(w, http.StatusNotFound, "document not found")
		return nil, false
	}
	return d, true
}

func (b *Backend) handleDocument(w http.ResponseWriter, r *http.Request) {
	d, ok := b.lookupDocument(w, r)
	if !ok {
		return
	}
	self := documentURL(r, d.doc.ID)
	links := d.doc.Links
	if links.Document == "" {
		links.Document = self
	}
	if links.Extractions == "" {
		links.Extractions = self + "/extractions"
	}
	if links.Processed == "" {
		links.Processed = self + "/processed"
	}
	if links.Pages == "" {
		links.Pages = self + "/pages"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":                   d.doc.ID,
		"name":                 d.doc.Name,
		"pageCount":            d.doc.PageCount,
		"progress":             orDefault(d.doc.Progress, "COMPLETED"),
		"sourceClassification": orDefault(d.doc.SourceClassification, "NATIVE"),
		"creationDate":         d.doc.CreationDate.UnixMilli(),
		"_links":               links,
	})
}

func (b *Backend) handleExtractions(w http.ResponseWriter, r *http.Request) {
	d, ok := b.lookupDocument(w, r)
	if !ok {
		return
	}
	body := map[string]any{"extractions": wireMap(d.extractions.Extractions)}
	if len(d.extractions.Payment) > 0 {
		groups := make([]map[string]any, 0, len(d.extractions.Payment))
		for _, g := range d.extractions.Payment {
			groups = append(groups, wireMap(g))
		}
		body["compoundExtractions"] = map[string]any{constants.PaymentGroup: groups}
	}
	writeJSON(w, http.StatusOK, body)
}

func (b *Backend) handleFeedback(w http.ResponseWriter, r *http.Request) {
	d, ok := b.lookupDocument(w, r)
	if !ok {
		return
	}
	var fb Feedback
	if err := json.NewDecoder(r.Body).Decode(&fb); err != nil || fb.Feedback == nil {
		writeError(w, http.StatusBadRequest, "invalid feedback")
		return
	}
	fb.DocumentID = d.doc.ID
	b.mu.Lock()
	b.feedback = append(b.feedback, fb)
	b.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) handlePreview(w http.ResponseWriter, r *http.Request) {
	d, ok := b.lookupDocument(w, r)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(mux.Vars(r)["page"])
	if page < 1 || page > d.doc.PageCount {
		writeError(w, http.StatusNotFound, "page not found")
		return
	}
	w.Header().Set("Content-Type", constants.MediaTypePNG)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(append(append([]byte{}, PNGSignature...), []byte(fmt.Sprintf("%s/%d", d.doc.ID, page))...))
}

// RenderPDF produces the minimal single-page PDF served for a payment request.
func RenderPDF(id, recipient, amount string) string {
	return fmt.Sprintf("%%PDF-1.4\n%% payment request %s\n%% recipient %s\n%% amount %s\n%%%%EOF\n", id, recipient, amount)
}

func wireMap(list []entity.Extraction) map[string]any {
	out := make(map[string]any, len(list))
	for _, e := range list {
		if _, seen := out[string(e.Name)]; seen {
			continue
		}
		item := map[string]any{"entity": e.Entity, "value": e.Value}
		if e.Box != nil {
			item["box"] = e.Box
		}
		out[string(e.Name)] = item
	}
	return out
}

func platforms(ps []constants.Platform) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, string(p))
	}
	sort.Strings(out)
	return out
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func requestURL(r *http.Request, id string) string {
	return baseURL(r) + "/paymentRequests/" + id
}

func documentURL(r *http.Request, id string) string {
	return baseURL(r) + "/documents/" + id
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", constants.MediaTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}
