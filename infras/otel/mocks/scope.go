package mocks

type scopeImpl struct {
	otel *Otel
}

// AddEvent implements otel.Scope.
func (s *scopeImpl) AddEvent(name string, _ ...map[string]any) {
	s.otel.mu.Lock()
	defer s.otel.mu.Unlock()

	s.otel.events = append(s.otel.events, name)
}

// End implements otel.Scope.
func (s *scopeImpl) End() {

}

// SetAttribute implements otel.Scope.
func (s *scopeImpl) SetAttribute(_ string, _ any) {

}

// SetAttributes implements otel.Scope.
func (s *scopeImpl) SetAttributes(_ map[string]any) {

}

// TraceError implements otel.Scope.
func (s *scopeImpl) TraceError(err error) {
	s.otel.mu.Lock()
	defer s.otel.mu.Unlock()

	s.otel.errors = append(s.otel.errors, err)
}

// TraceIfError implements otel.Scope.
func (s *scopeImpl) TraceIfError(err error) {
	if err != nil {
		s.TraceError(err)
	}
}
