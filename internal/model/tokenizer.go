package model

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const maxSeqLen = 256

// wordpiece is an uncased BERT WordPiece tokenizer, enough for the
// DistilBERT-style classifiers exported to ONNX.
type wordpiece struct {
	ids map[string]int64
	unk int64
	cls int64
	sep int64
}

// loadWordpiece reads vocab.txt, where the 0-based line number is the token id.
func loadWordpiece(path string) (*wordpiece, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("vocab: %w", err)
	}
	defer f.Close()

	ids := make(map[string]int64, 32000)
	sc := bufio.NewScanner(f)
	for n := int64(0); sc.Scan(); n++ {
		ids[sc.Text()] = n
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("vocab: read: %w", err)
	}
	return newWordpiece(ids)
}

func newWordpiece(ids map[string]int64) (*wordpiece, error) {
	wp := &wordpiece{ids: ids}
	for tok, dest := range map[string]*int64{"[UNK]": &wp.unk, "[CLS]": &wp.cls, "[SEP]": &wp.sep} {
		id, ok := ids[tok]
		if !ok {
			return nil, fmt.Errorf("vocab: missing special token %s", tok)
		}
		*dest = id
	}
	return wp, nil
}

// encode returns [CLS] tokens... [SEP] ids truncated to maxSeqLen, with a
// matching all-ones attention mask.
func (wp *wordpiece) encode(text string) (ids, mask []int64) {
	ids = append(ids, wp.cls)
	for _, word := range basicTokens(text) {
		for _, piece := range wp.split(word) {
			if len(ids) == maxSeqLen-1 {
				break
			}
			ids = append(ids, piece)
		}
	}
	ids = append(ids, wp.sep)

	mask = make([]int64, len(ids))
	for i := range mask {
		mask[i] = 1
	}
	return ids, mask
}

// split greedily matches the longest vocabulary prefix, continuing with
// ##-prefixed pieces. A word that cannot be covered becomes [UNK].
func (wp *wordpiece) split(word string) []int64 {
	runes := []rune(word)
	if len(runes) > 100 {
		return []int64{wp.unk}
	}

	var out []int64
	for start := 0; start < len(runes); {
		end := len(runes)
		var id int64 = -1
		for ; end > start; end-- {
			sub := string(runes[start:end])
			if start > 0 {
				sub = "##" + sub
			}
			if v, ok := wp.ids[sub]; ok {
				id = v
				break
			}
		}
		if id < 0 {
			return []int64{wp.unk}
		}
		out = append(out, id)
		start = end
	}
	return out
}

// basicTokens lowercases, strips accents, and splits on whitespace and
// punctuation, keeping punctuation marks as tokens.
func basicTokens(text string) []string {
	var b strings.Builder
	for _, r := range norm.NFD.String(strings.ToLower(text)) {
		switch {
		case unicode.Is(unicode.Mn, r):
		case r == 0 || r == unicode.ReplacementChar || (unicode.IsControl(r) && !unicode.IsSpace(r)):
		case isPunct(r):
			b.WriteRune(' ')
			b.WriteRune(r)
			b.WriteRune(' ')
		default:
			b.WriteRune(r)
		}
	}
	return strings.Fields(b.String())
}

func isPunct(r rune) bool {
	if (r >= 33 && r <= 47) || (r >= 58 && r <= 64) || (r >= 91 && r <= 96) || (r >= 123 && r <= 126) {
		return true
	}
	return unicode.IsPunct(r)
}
