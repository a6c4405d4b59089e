package vocab

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// CharVocabulary maps single characters (or short labels) to ids loaded from
// a label file.
//
// The file is CSV with a header row and the columns id, char, freq:
//
//	id,char,freq
//	0,<pad>,0
//	1,<sos>,0
//	2,<eos>,0
//	3,<blank>,0
//	4, ,1520
//	5,a,981
//
// Ids must cover 0..n-1 exactly once. The four special labels are required.
type CharVocabulary struct {
	specials
	labels []string
	ids    map[string]int32
}

// LoadCharVocabulary reads a label file from disk.
func LoadCharVocabulary(path string) (*CharVocabulary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("vocab: open labels: %w", err)
	}
	defer f.Close()

	v, err := ParseCharVocabulary(f)
	if err != nil {
		return nil, fmt.Errorf("%w (%s)", err, path)
	}
	return v, nil
}

// ParseCharVocabulary reads a label file.
func ParseCharVocabulary(r io.Reader) (*CharVocabulary, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 3

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("vocab: empty label file")
		}
		return nil, fmt.Errorf("vocab: read header: %w", err)
	}
	if strings.TrimSpace(header[0]) != "id" || strings.TrimSpace(header[1]) != "char" {
		return nil, fmt.Errorf("vocab: expected header id,char,freq, got %s", strings.Join(header, ","))
	}

	byID := make(map[int]string)
	ids := make(map[string]int32)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("vocab: read labels: %w", err)
		}

		id, err := strconv.Atoi(strings.TrimSpace(record[0]))
		if err != nil {
			return nil, fmt.Errorf("vocab: bad id %q: %w", record[0], err)
		}
		label := record[1]
		if label == "" {
			return nil, fmt.Errorf("vocab: empty label for id %d", id)
		}
		if _, dup := byID[id]; dup {
			return nil, fmt.Errorf("vocab: duplicate id %d", id)
		}
		if _, dup := ids[label]; dup {
			return nil, fmt.Errorf("vocab: duplicate label %q", label)
		}
		byID[id] = label
		ids[label] = int32(id) //nolint:gosec // bounded by the file size check below
	}

	labels := make([]string, len(byID))
	for i := range labels {
		label, ok := byID[i]
		if !ok {
			return nil, fmt.Errorf("vocab: ids must cover 0..%d, missing %d", len(labels)-1, i)
		}
		labels[i] = label
	}

	v := &CharVocabulary{labels: labels, ids: ids}
	for _, s := range []struct {
		label string
		dst   *int32
	}{
		{PadLabel, &v.pad},
		{SOSLabel, &v.sos},
		{EOSLabel, &v.eos},
		{BlankLabel, &v.blank},
	} {
		id, ok := ids[s.label]
		if !ok {
			return nil, fmt.Errorf("vocab: missing special label %s", s.label)
		}
		*s.dst = id
	}
	return v, nil
}

// Encode maps every character of text to its id.
func (v *CharVocabulary) Encode(text string) ([]int32, error) {
	out := make([]int32, 0, len(text))
	for _, r := range text {
		id, ok := v.ids[string(r)]
		if !ok || v.isSpecial(id) || id == v.eos {
			return nil, fmt.Errorf("%w: %q", ErrUnknownSymbol, r)
		}
		out = append(out, id)
	}
	return out, nil
}

// Decode joins the labels of ids.
func (v *CharVocabulary) Decode(ids []int32) (string, error) {
	var sb strings.Builder
	for _, id := range ids {
		if id < 0 || int(id) >= len(v.labels) {
			return "", fmt.Errorf("%w: %d", ErrUnknownID, id)
		}
		if id == v.eos {
			break
		}
		if v.isSpecial(id) {
			continue
		}
		sb.WriteString(v.labels[id])
	}
	return sb.String(), nil
}

// Size returns the number of labels.
func (v *CharVocabulary) Size() int {
	return len(v.labels)
}

// Label returns the label of id.
func (v *CharVocabulary) Label(id int32) (string, bool) {
	if id < 0 || int(id) >= len(v.labels) {
		return "", false
	}
	return v.labels[id], true
}
