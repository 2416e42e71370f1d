package domain

// EditField tracks a user-editable value that can come from live market data
// (Actual), the last successful parse of user input (LastParsed) or a default.
// ToUse is the single value downstream code reads.
type EditField[T any] struct {
	Actual     *T      `json:"actual,omitempty"`
	User       *string `json:"user,omitempty"`
	LastParsed *T      `json:"lastParsed,omitempty"`
	Error      string  `json:"error,omitempty"`
	ToUse      T       `json:"toUse"`
}

// Fixed returns a field whose value was entered and parsed successfully.
func Fixed[T any](v T) EditField[T] {
	return EditField[T]{LastParsed: Ptr(v), ToUse: v}
}

// Resolve applies the precedence LastParsed, then Actual, then def.
func (f EditField[T]) Resolve(def T) T {
	if f.LastParsed != nil {
		return *f.LastParsed
	}
	if f.Actual != nil {
		return *f.Actual
	}
	return def
}

// Refresh recomputes ToUse from the current sources.
func (f *EditField[T]) Refresh(def T) {
	f.ToUse = f.Resolve(def)
}

// Clone returns a copy that shares no pointers with f.
func (f EditField[T]) Clone() EditField[T] {
	out := f
	if f.Actual != nil {
		out.Actual = Ptr(*f.Actual)
	}
	if f.User != nil {
		out.User = Ptr(*f.User)
	}
	if f.LastParsed != nil {
		out.LastParsed = Ptr(*f.LastParsed)
	}
	return out
}

// Ptr returns a pointer to a copy of v.
func Ptr[T any](v T) *T { return &v }
