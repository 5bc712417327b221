package serialization

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/jmt-lab/bottlerocket/datastore"
	"golang.org/x/xerrors"
	"gopkg.in/yaml.v2"
)

const listItemPrefix = "- "

// emptyList is the encoding of a list without element.
const emptyList = "[]"

// MarshalValue encodes a value as plain text. A scalar takes a single line
// while a list takes one line per element, each starting with "- ". The
// output is a valid YAML document.
func MarshalValue(value datastore.Value) ([]byte, error) {
	value, err := datastore.NormalizeValue(value)
	if err != nil {
		return nil, err
	}

	list, isList := value.([]interface{})
	if !isList {
		token, err := encodeScalar(value)
		if err != nil {
			return nil, err
		}

		return []byte(token + "\n"), nil
	}

	if len(list) == 0 {
		return []byte(emptyList + "\n"), nil
	}

	buffer := new(bytes.Buffer)

	for _, elem := range list {
		token, err := encodeScalar(elem)
		if err != nil {
			return nil, err
		}

		buffer.WriteString(listItemPrefix)
		buffer.WriteString(token)
		buffer.WriteString("\n")
	}

	return buffer.Bytes(), nil
}

// UnmarshalValue decodes a value produced by MarshalValue. It returns an error
// when the data does not hold a scalar or a list of scalars.
func UnmarshalValue(data []byte) (datastore.Value, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, xerrors.New("empty value")
	}

	var raw interface{}

	err := yaml.Unmarshal(data, &raw)
	if err != nil {
		return nil, xerrors.Errorf("failed to decode: %v", err)
	}

	value, err := datastore.NormalizeValue(raw)
	if err != nil {
		return nil, xerrors.Errorf("unexpected value: %v", err)
	}

	return value, nil
}

func encodeScalar(value datastore.Value) (string, error) {
	switch e := value.(type) {
	case string:
		// Every rune that is not printable is escaped, which includes the
		// controls and line separators a YAML stream rejects or folds. The
		// escapes all belong to the YAML double-quoted style.
		return strconv.Quote(e), nil
	case bool:
		return strconv.FormatBool(e), nil
	case int64:
		return strconv.FormatInt(e, 10), nil
	case float64:
		return formatFloat(e), nil
	default:
		return "", datastore.NewSerialization(fmt.Sprintf("unsupported type %T", value), nil)
	}
}

// formatFloat always produces a fraction or an exponent so that the value is
// decoded back as a float and not as an integer.
func formatFloat(f float64) string {
	str := strconv.FormatFloat(f, 'g', -1, 64)

	if strings.ContainsAny(str, ".e") {
		return str
	}

	return str + ".0"
}
