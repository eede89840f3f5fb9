package jsonapi

// ResourceBuilder provides a fluent API for building Resource objects.
type ResourceBuilder struct {
	resource Resource
}

// NewResource creates a new ResourceBuilder with the given type and ID.
func NewResource(resourceType, id string) *ResourceBuilder {
	return &ResourceBuilder{
		resource: Resource{
			Type:       resourceType,
			ID:         id,
			Attributes: make(map[string]any),
		},
	}
}

// Attr sets a single attribute.
func (b *ResourceBuilder) Attr(key string, value any) *ResourceBuilder {
	if b.resource.Attributes == nil {
		b.resource.Attributes = make(map[string]any)
	}
	b.resource.Attributes[key] = value
	return b
}

// Attrs merges the given attributes into the resource.
func (b *ResourceBuilder) Attrs(attrs map[string]any) *ResourceBuilder {
	for k, v := range attrs {
		b.Attr(k, v)
	}
	return b
}

// Meta adds a metadata entry to the resource.
func (b *ResourceBuilder) Meta(key string, value any) *ResourceBuilder {
	if b.resource.Meta == nil {
		b.resource.Meta = make(Meta)
	}
	b.resource.Meta[key] = value
	return b
}

// Link sets the self link of the resource.
func (b *ResourceBuilder) Link(self string) *ResourceBuilder {
	b.resource.Links = &Links{Self: self}
	return b
}

// Build returns the constructed Resource.
func (b *ResourceBuilder) Build() Resource {
	return b.resource
}
