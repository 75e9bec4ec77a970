package composite

// Tail returns every element of the tuple after the first.
func Tail(t Tuple) (Tuple, error) {
	if len(t) == 0 {
		return nil, &PreconditionError{Op: "Tail", Reason: "empty tuple has no tail"}
	}
	return t[1:], nil
}

// Zip combines parallel tuples into a tuple of columns: the i-th element
// of the result is the tuple of every input's i-th element. All inputs
// must have equal length.
func Zip(seqs ...Tuple) (Tuple, error) {
	if len(seqs) == 0 {
		return Tuple{}, nil
	}
	n := len(seqs[0])
	for _, s := range seqs[1:] {
		if len(s) != n {
			return nil, &ShapeMismatchError{Op: "Zip", Want: n, Got: len(s)}
		}
	}
	out := make(Tuple, n)
	for i := 0; i < n; i++ {
		column := make(Tuple, len(seqs))
		for j, s := range seqs {
			column[j] = s[i]
		}
		out[i] = column
	}
	return out, nil
}
