package confstore

// DumpFunc converts a field value into its document string.
type DumpFunc func(value any, field Field) (string, error)

// LoadFunc converts a document string back into a field value.
type LoadFunc func(raw string, field Field) (any, error)

// Codec is a dump/load pair for one field type or one named field.
type Codec struct {
	Dump DumpFunc
	Load LoadFunc
}

func (c Codec) valid() bool {
	return c.Dump != nil && c.Load != nil
}

// Registry resolves codecs for fields. Field-name entries take precedence
// over type-tag entries; fields with no match in either table fall back to
// the verbatim codec, which is never an error.
type Registry struct {
	types  map[FieldType]Codec
	fields map[string]Codec
}

// NewRegistry returns a registry seeded with the built-in type codecs.
func NewRegistry() *Registry {
	return &Registry{
		types: map[FieldType]Codec{
			TypeBool:     {Dump: dumpBool, Load: loadBool},
			TypeTime:     {Dump: dumpTime, Load: loadTime},
			TypeDuration: {Dump: dumpDuration, Load: loadDuration},
			TypeText:     {Dump: dumpText, Load: loadText},
			TypeChoice:   {Dump: dumpChoice, Load: loadChoice},
			TypeList:     {Dump: dumpSequence, Load: loadList},
			TypeTuple:    {Dump: dumpSequence, Load: loadTuple},
			TypeSet:      {Dump: dumpSet, Load: loadSet},
		},
		fields: map[string]Codec{},
	}
}

// Clone returns an independent copy so per-store registrations never leak
// into a shared registry.
func (r *Registry) Clone() *Registry {
	out := &Registry{
		types:  make(map[FieldType]Codec, len(r.types)),
		fields: make(map[string]Codec, len(r.fields)),
	}
	for fieldType, codec := range r.types {
		out.types[fieldType] = codec
	}
	for name, codec := range r.fields {
		out.fields[name] = codec
	}
	return out
}

// RegisterType installs or replaces the codec for a type tag.
func (r *Registry) RegisterType(fieldType FieldType, codec Codec) {
	if !codec.valid() {
		return
	}
	if r.types == nil {
		r.types = map[FieldType]Codec{}
	}
	r.types[fieldType] = codec
}

// RegisterField installs an override codec for one field name. Overrides
// receive the raw value and raw string with no pre or post processing.
func (r *Registry) RegisterField(name string, codec Codec) {
	if name == "" || !codec.valid() {
		return
	}
	if r.fields == nil {
		r.fields = map[string]Codec{}
	}
	r.fields[name] = codec
}

// Resolve returns the codec bound to field: the field-name override when
// registered, else the type-tag codec, else verbatim passthrough.
func (r *Registry) Resolve(field Field) Codec {
	if r != nil {
		if codec, ok := r.fields[field.Name]; ok {
			return codec
		}
		if codec, ok := r.types[field.Type]; ok {
			return codec
		}
	}
	return Codec{Dump: dumpVerbatim, Load: loadVerbatim}
}
