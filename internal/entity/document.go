package entity

import (
	"time"

	"github.com/joseph-ayodele/payment-orchestrator/constants"
)

// DocumentLinks are the backend locations related to a document.
type DocumentLinks struct {
	Document    string `json:"document"`
	Extractions string `json:"extractions"`
	Processed   string `json:"processed"`
	Pages       string `json:"pages,omitempty"`
}

// Document is the metadata of an analysed document.
type Document struct {
	ID                   string        `json:"id"`
	Name                 string        `json:"name"`
	PageCount            int           `json:"pageCount"`
	Progress             string        `json:"progress"`
	SourceClassification string        `json:"sourceClassification"`
	CreationDate         time.Time     `json:"creationDate"`
	Links                DocumentLinks `json:"_links"`
}

// Box is the page location an extraction was read from.
type Box struct {
	Page   int     `json:"page"`
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Extraction is a named field value produced by the document-analysis backend.
type Extraction struct {
	Name       constants.ExtractionName `json:"name"`
	Entity     string                   `json:"entity"`
	Value      string                   `json:"value"`
	Box        *Box                     `json:"box,omitempty"`
	Candidates string                   `json:"candidates,omitempty"`
}

// ExtractionResult is the flattened extraction list plus the compound payment groups.
type ExtractionResult struct {
	Extractions []Extraction   `json:"extractions"`
	Payment     [][]Extraction `json:"payment"`
}

// HasPaymentGroup reports whether the backend produced a "payment" compound extraction.
func (r ExtractionResult) HasPaymentGroup() bool {
	return len(r.Payment) > 0
}

// DataForReview pairs a document with its extractions for one review flow.
type DataForReview struct {
	Document    Document     `json:"document"`
	Extractions []Extraction `json:"extractions"`
}
