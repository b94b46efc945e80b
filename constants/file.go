package constants

// Accept / content types used by the payment and document backends.
const (
	MediaTypeJSON = "application/vnd.gini.v1+json"
	MediaTypePDF  = "application/vnd.gini.v1+pdf"
	MediaTypePNG  = "image/png"
	MediaTypeJPEG = "image/jpeg"
)

// ArtifactPDFExt is the extension given to QR PDFs in transient storage.
const ArtifactPDFExt = ".pdf"
