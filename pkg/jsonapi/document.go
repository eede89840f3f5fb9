package jsonapi

// DocumentBuilder provides a fluent API for building Document objects.
type DocumentBuilder struct {
	doc Document
}

// NewDocument creates a new DocumentBuilder.
func NewDocument() *DocumentBuilder {
	return &DocumentBuilder{}
}

// Data sets the primary data of the document.
func (b *DocumentBuilder) Data(data any) *DocumentBuilder {
	b.doc.Data = data
	return b
}

// DataResource sets a single resource as the primary data.
func (b *DocumentBuilder) DataResource(r Resource) *DocumentBuilder {
	b.doc.Data = r
	return b
}

// Errors sets the errors array. This is mutually exclusive with Data.
func (b *DocumentBuilder) Errors(errors ...Error) *DocumentBuilder {
	b.doc.Errors = errors
	b.doc.Data = nil
	return b
}

// Meta adds a metadata entry to the document.
func (b *DocumentBuilder) Meta(key string, value any) *DocumentBuilder {
	if b.doc.Meta == nil {
		b.doc.Meta = make(Meta)
	}
	b.doc.Meta[key] = value
	return b
}

// MetaAll sets all metadata at once.
func (b *DocumentBuilder) MetaAll(meta Meta) *DocumentBuilder {
	b.doc.Meta = meta
	return b
}

// Links sets the top-level links.
func (b *DocumentBuilder) Links(links *Links) *DocumentBuilder {
	b.doc.Links = links
	return b
}

// JSONAPI sets the JSON:API version object.
func (b *DocumentBuilder) JSONAPI() *DocumentBuilder {
	b.doc.JSONAPI = &JSONAPI{Version: Version}
	return b
}

// Build returns the constructed Document.
func (b *DocumentBuilder) Build() Document {
	return b.doc
}

// NewSingleResourceDocument is a convenience function for creating a document with a single resource.
func NewSingleResourceDocument(r Resource) Document {
	return NewDocument().DataResource(r).Build()
}

// NewErrorDocument is a convenience function for creating an error document.
func NewErrorDocument(errors ...Error) Document {
	return NewDocument().Errors(errors...).Build()
}
