package dictify

// Field describes one persisted field of a struct type S: its key in the
// encoded map, the type it decodes with and how it is reached inside S.
type Field[S any] struct {
	name   string
	encode func(*S) (Value, error)
	decode func(Value, *S) error
}

// Attr describes a field that encodes with Dictify.
func Attr[S, F any](name string, t Type[F], ref func(*S) *F) Field[S] {
	return AttrEncoded(name, t, ref, func(f F) (Value, error) { return Dictify(f) })
}

// AttrEncoded describes a field with a custom encoder.
func AttrEncoded[S, F any](name string, t Type[F], ref func(*S) *F, encode func(F) (Value, error)) Field[S] {
	return Field[S]{
		name: name,
		encode: func(s *S) (Value, error) {
			return encode(*ref(s))
		},
		decode: func(v Value, s *S) error {
			f, err := t.Decode(v)
			if err != nil {
				return err
			}
			*ref(s) = f
			return nil
		},
	}
}

// Struct is the persisted shape of S: a map of field name to encoded field
// value. Fields that encode to null are omitted, and absent keys decode as
// null, so optional fields vanish from the persisted form when unset.
type Struct[S any] struct {
	name   string
	fields []Field[S]
}

// NewStruct builds the shape of S from its field descriptors.
func NewStruct[S any](name string, fields ...Field[S]) *Struct[S] {
	return &Struct[S]{name: name, fields: fields}
}

func (s *Struct[S]) Name() string { return s.name }

// Decode builds an S from an encoded map. Keys not described by a field are
// ignored.
func (s *Struct[S]) Decode(v Value) (S, error) {
	var out S
	m, err := asMap(v)
	if err != nil {
		return out, err
	}
	for _, f := range s.fields {
		fv, _ := m.Get(f.name)
		if err := f.decode(fv, &out); err != nil {
			return out, inField(f.name, err)
		}
	}
	return out, nil
}

// Encode returns the map form of v.
func (s *Struct[S]) Encode(v *S) (*Map, error) {
	out := NewMap()
	for _, f := range s.fields {
		ev, err := f.encode(v)
		if err != nil {
			return nil, inField(f.name, err)
		}
		if ev != nil {
			out.Set(f.name, ev)
		}
	}
	return out, nil
}
