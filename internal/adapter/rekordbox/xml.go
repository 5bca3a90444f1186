package rekordbox

import (
	"encoding/xml"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Position mark types.
const (
	markCue  = 0
	markLoad = 3
	markLoop = 4
)

type document struct {
	XMLName    xml.Name    `xml:"DJ_PLAYLISTS"`
	Version    string      `xml:"Version,attr"`
	Product    product     `xml:"PRODUCT"`
	Collection collection  `xml:"COLLECTION"`
	Playlists  *innerBlock `xml:"PLAYLISTS,omitempty"`
}

type product struct {
	Name    string `xml:"Name,attr"`
	Version string `xml:"Version,attr"`
	Company string `xml:"Company,attr"`
}

type collection struct {
	Entries int      `xml:"Entries,attr"`
	Tracks  []*track `xml:"TRACK"`
}

// innerBlock keeps an element we never edit byte for byte.
type innerBlock struct {
	Attrs []xml.Attr `xml:",any,attr"`
	Inner []byte     `xml:",innerxml"`
}

type track struct {
	TrackID   string     `xml:"TrackID,attr,omitempty"`
	Location  string     `xml:"Location,attr"`
	TotalTime string     `xml:"TotalTime,attr,omitempty"`
	Attrs     []xml.Attr `xml:",any,attr"`
	Tempos    []tempo    `xml:"TEMPO"`
	Marks     []mark     `xml:"POSITION_MARK"`
}

type tempo struct {
	Inizio  decimal `xml:"Inizio,attr"`
	Bpm     decimal `xml:"Bpm,attr"`
	Metro   string  `xml:"Metro,attr"`
	Battito int     `xml:"Battito,attr"`
}

type mark struct {
	Name  string   `xml:"Name,attr"`
	Type  int      `xml:"Type,attr"`
	Start decimal  `xml:"Start,attr"`
	End   *decimal `xml:"End,attr,omitempty"`
	Num   int      `xml:"Num,attr"`
	Red   *int     `xml:"Red,attr,omitempty"`
	Green *int     `xml:"Green,attr,omitempty"`
	Blue  *int     `xml:"Blue,attr,omitempty"`
}

// decimal is a float attribute written without an exponent.
type decimal float64

func (d decimal) MarshalXMLAttr(name xml.Name) (xml.Attr, error) {
	return xml.Attr{Name: name, Value: strconv.FormatFloat(float64(d), 'f', -1, 64)}, nil
}

func (d *decimal) UnmarshalXMLAttr(attr xml.Attr) error {
	v, err := strconv.ParseFloat(strings.TrimSpace(attr.Value), 64)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", attr.Name.Local, attr.Value, err)
	}
	*d = decimal(v)
	return nil
}

// beatsPerBar parses the numerator of a Metro attribute such as "3/4".
func beatsPerBar(metro string) (int, error) {
	num, _, _ := strings.Cut(metro, "/")
	n, err := strconv.Atoi(strings.TrimSpace(num))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid time signature %q", metro)
	}
	return n, nil
}

// totalTime returns the TotalTime attribute in seconds, or 0 when unset.
func (t *track) totalTime() float64 {
	v, err := strconv.ParseFloat(t.TotalTime, 64)
	if err != nil {
		return 0
	}
	return v
}

// locationURI renders a file path the way Rekordbox stores it.
func locationURI(path string) string {
	u := url.URL{Scheme: "file", Host: "localhost", Path: path}
	return u.String()
}

// locationPath is the inverse of locationURI.
func locationPath(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("invalid track location %q: %w", uri, err)
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("unsupported track location %q", uri)
	}
	return u.Path, nil
}
