package observability

type Metrics interface {
	ObserveConfirm(provider, outcome string, durMs float64)
	ObserveSync(durMs float64, ok bool)
	ObserveHTTP(method, route string, status int, durMs float64)
	IncCacheHit()
	IncCacheMiss()
}

type Noop struct{}

func NewNoop() Noop { return Noop{} }

func (Noop) ObserveConfirm(string, string, float64)   {}
func (Noop) ObserveSync(float64, bool)                {}
func (Noop) ObserveHTTP(string, string, int, float64) {}
func (Noop) IncCacheHit()                             {}
func (Noop) IncCacheMiss()                            {}
