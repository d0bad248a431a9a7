package seriesid

// Address names one series: an equation or input and the index tuple it is
// read at, one index name per index set in canonical order.
type Address struct {
	Name    string
	Indices []string
}

// New creates an Address.
func New(name string, indices ...string) *Address {
	return &Address{Name: name, Indices: indices}
}
