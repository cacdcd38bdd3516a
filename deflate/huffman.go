package deflate

const maxHuffmanBits = 15

// huffman is a canonical Huffman decode table built from a list of code
// lengths, one per symbol (0 meaning "symbol unused"), following the
// construction in RFC 1951 §3.2.2: count how many codes share each length,
// then assign codes in symbol order within each length class.
type huffman struct {
	count  [maxHuffmanBits + 1]int
	symbol []int
}

func newHuffman(lengths []int) *huffman {
	h := &huffman{symbol: make([]int, len(lengths))}
	for _, l := range lengths {
		h.count[l]++
	}
	h.count[0] = 0

	var offset [maxHuffmanBits + 2]int
	for l := 1; l <= maxHuffmanBits; l++ {
		offset[l+1] = offset[l] + h.count[l]
	}
	for sym, l := range lengths {
		if l != 0 {
			h.symbol[offset[l]] = sym
			offset[l]++
		}
	}
	return h
}

// decodeSymbol reads one bit at a time and matches against the canonical
// code ranges per length, in the manner of Mark Adler's puff.c reference
// decoder: no lookup table, just an incrementally widened code compared
// against the first/count bookkeeping for each bit length.
func decodeSymbol(br *bitReader, h *huffman) (int, error) {
	code, first, index := 0, 0, 0
	for l := 1; l <= maxHuffmanBits; l++ {
		bit, err := br.bits(1)
		if err != nil {
			return 0, err
		}
		code |= bit
		count := h.count[l]
		if code-first < count {
			return h.symbol[index+(code-first)], nil
		}
		index += count
		first += count
		first <<= 1
		code <<= 1
	}
	return 0, errBadHuffman
}

var lengthBase = []int{3, 4, 5, 6, 7, 8, 9, 10, 11, 13, 15, 17, 19, 23, 27, 31, 35, 43, 51, 59, 67, 83, 99, 115, 131, 163, 195, 227, 258}
var lengthExtra = []int{0, 0, 0, 0, 0, 0, 0, 0, 1, 1, 1, 1, 2, 2, 2, 2, 3, 3, 3, 3, 4, 4, 4, 4, 5, 5, 5, 5, 0}

var distBase = []int{1, 2, 3, 4, 5, 7, 9, 13, 17, 25, 33, 49, 65, 97, 129, 193, 257, 385, 513, 769, 1025, 1537, 2049, 3073, 4097, 6145, 8193, 12289, 16385, 24577}
var distExtra = []int{0, 0, 0, 0, 1, 1, 2, 2, 3, 3, 4, 4, 5, 5, 6, 6, 7, 7, 8, 8, 9, 9, 10, 10, 11, 11, 12, 12, 13, 13}

var codeLengthOrder = []int{16, 17, 18, 0, 8, 7, 9, 6, 10, 5, 11, 4, 12, 3, 13, 2, 14, 1, 15}

var fixedLit, fixedDist *huffman

func fixedLiteralTable() *huffman {
	if fixedLit == nil {
		lengths := make([]int, 288)
		for i := 0; i < 144; i++ {
			lengths[i] = 8
		}
		for i := 144; i < 256; i++ {
			lengths[i] = 9
		}
		for i := 256; i < 280; i++ {
			lengths[i] = 7
		}
		for i := 280; i < 288; i++ {
			lengths[i] = 8
		}
		fixedLit = newHuffman(lengths)
	}
	return fixedLit
}

func fixedDistanceTable() *huffman {
	if fixedDist == nil {
		lengths := make([]int, 30)
		for i := range lengths {
			lengths[i] = 5
		}
		fixedDist = newHuffman(lengths)
	}
	return fixedDist
}

// readDynamicTables decodes a dynamic Huffman block header (RFC 1951 §3.2.7):
// HLIT/HDIST/HCLEN counts, the code-length alphabet's own code lengths, and
// then the literal/length and distance code lengths themselves (with
// run-length codes 16/17/18).
func (d *decoder) readDynamicTables() (*huffman, *huffman, error) {
	hlit, err := d.br.bits(5)
	if err != nil {
		return nil, nil, err
	}
	hlit += 257
	hdist, err := d.br.bits(5)
	if err != nil {
		return nil, nil, err
	}
	hdist += 1
	hclen, err := d.br.bits(4)
	if err != nil {
		return nil, nil, err
	}
	hclen += 4

	clLengths := make([]int, 19)
	for i := 0; i < hclen; i++ {
		v, err := d.br.bits(3)
		if err != nil {
			return nil, nil, err
		}
		clLengths[codeLengthOrder[i]] = v
	}
	clTable := newHuffman(clLengths)

	total := hlit + hdist
	if total > 288+32 {
		return nil, nil, errTooManyCodes
	}
	lengths := make([]int, total)
	i := 0
	for i < total {
		sym, err := decodeSymbol(d.br, clTable)
		if err != nil {
			return nil, nil, err
		}
		switch {
		case sym < 16:
			lengths[i] = sym
			i++
		case sym == 16:
			if i == 0 {
				return nil, nil, errBadHuffman
			}
			rep, err := d.br.bits(2)
			if err != nil {
				return nil, nil, err
			}
			rep += 3
			prev := lengths[i-1]
			for ; rep > 0 && i < total; rep-- {
				lengths[i] = prev
				i++
			}
		case sym == 17:
			rep, err := d.br.bits(3)
			if err != nil {
				return nil, nil, err
			}
			rep += 3
			for ; rep > 0 && i < total; rep-- {
				lengths[i] = 0
				i++
			}
		case sym == 18:
			rep, err := d.br.bits(7)
			if err != nil {
				return nil, nil, err
			}
			rep += 11
			for ; rep > 0 && i < total; rep-- {
				lengths[i] = 0
				i++
			}
		default:
			return nil, nil, errBadHuffman
		}
	}
	litTable := newHuffman(lengths[:hlit])
	distTable := newHuffman(lengths[hlit:])
	return litTable, distTable, nil
}
