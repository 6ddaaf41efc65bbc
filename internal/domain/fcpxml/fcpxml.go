// Package fcpxml reads Final Cut Pro XML documents as a caption source and
// provides the rational time codec shared with the FCPXML exporter.
//
// FCP's "Transcribe to Captions" feature produces <caption> elements inside
// the primary spine clip; those become the timeline's speech units when a
// project is analysed from an .fcpxml instead of a raw video.
package fcpxml

import (
	"encoding/xml"
	"errors"
	"fmt"
	"math"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/forPelevin/ftedit/internal/domain/timeline"
)

// ErrNoResources reports a document without a <resources> element.
var ErrNoResources = errors.New("fcpxml has no resources element")

// DefaultTimescale is the rational-time denominator used when encoding
// seconds for export. 44100 (the audio sample rate) gives sample-accurate
// boundaries.
const DefaultTimescale = 44100

// ParseTime converts an FCPXML time string ("0s", "3600s", "1001/30000s")
// to float seconds.
func ParseTime(s string) (float64, error) {
	if s == "" || s == "0s" || s == "0" {
		return 0, nil
	}
	s = strings.TrimSuffix(s, "s")
	if num, den, ok := strings.Cut(s, "/"); ok {
		n, err := strconv.ParseFloat(num, 64)
		if err != nil {
			return 0, fmt.Errorf("parse time %q: %w", s, err)
		}
		d, err := strconv.ParseFloat(den, 64)
		if err != nil || d == 0 {
			return 0, fmt.Errorf("parse time %q: bad denominator", s)
		}
		return n / d, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse time %q: %w", s, err)
	}
	return v, nil
}

// FormatTime converts float seconds to an FCPXML rational time string at the
// given timescale. Each call converts independently from absolute seconds;
// callers must not accumulate deltas.
func FormatTime(seconds float64, timescale int) string {
	if seconds == 0 {
		return "0s"
	}
	value := int64(math.Round(seconds * float64(timescale)))
	return fmt.Sprintf("%d/%ds", value, timescale)
}

// Document is the parsed view of an .fcpxml file: the pieces the analysis
// pipeline and the round-trip exporter need.
type Document struct {
	Version   string
	VideoPath string
	Duration  float64
	FPS       float64
	Width     int
	Height    int
	AssetID   string
	FormatID  string
	Captions  []timeline.TextSegment
}

// HasCaptions reports whether the document carries any caption text.
func (d *Document) HasCaptions() bool { return len(d.Captions) > 0 }

// Parse reads and parses the document at path.
func Parse(path string) (*Document, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var root node
	if err := xml.Unmarshal(b, &root); err != nil {
		return nil, fmt.Errorf("parse fcpxml %s: %w", path, err)
	}

	doc := &Document{
		Version:  root.attr("version", "1.11"),
		FPS:      25.0,
		Width:    1920,
		Height:   1080,
		AssetID:  "r2",
		FormatID: "r1",
	}

	resources := root.find("resources")
	if resources == nil {
		return nil, ErrNoResources
	}

	// First asset that carries media is the primary source.
	for _, asset := range resources.findAll("asset") {
		if asset.attr("hasVideo", "0") != "1" && asset.attr("hasAudio", "1") != "1" {
			continue
		}
		doc.AssetID = asset.attr("id", "r2")
		if d, err := ParseTime(asset.attr("duration", "0s")); err == nil {
			doc.Duration = d
		}
		src := asset.attr("src", "")
		if rep := asset.find("media-rep"); rep != nil {
			src = rep.attr("src", src)
		}
		if src != "" {
			doc.VideoPath = assetPathFromURL(src)
		}
		break
	}

	if fmtEl := resources.find("format"); fmtEl != nil {
		doc.FormatID = fmtEl.attr("id", doc.FormatID)
		doc.Width = atoiDefault(fmtEl.attr("width", ""), 1920)
		doc.Height = atoiDefault(fmtEl.attr("height", ""), 1080)
		// frameDuration is the duration of one frame, e.g. "1001/30000s".
		if fd, err := ParseTime(fmtEl.attr("frameDuration", "")); err == nil && fd > 0 {
			doc.FPS = math.Round(1.0/fd*1e6) / 1e6
		}
	}

	if seq := root.find("sequence"); seq != nil {
		if d, err := ParseTime(seq.attr("duration", "0s")); err == nil && d > 0 {
			doc.Duration = d
		}
	}

	doc.Captions = extractCaptions(&root)
	return doc, nil
}

func extractCaptions(root *node) []timeline.TextSegment {
	var out []timeline.TextSegment
	for _, c := range root.findAll("caption") {
		offset, err := ParseTime(c.attr("offset", "0s"))
		if err != nil {
			continue
		}
		duration, err := ParseTime(c.attr("duration", "0s"))
		if err != nil || duration <= 0 {
			continue
		}

		// FCPXML 1.12+ nests the string inside <text-style> children, so the
		// <text> element's own chardata may be empty; collect all descendant
		// text nodes.
		var texts []string
		for _, textEl := range c.findAll("text") {
			if t := strings.TrimSpace(textEl.allText()); t != "" {
				texts = append(texts, t)
			}
		}
		if len(texts) == 0 {
			if name := strings.TrimSpace(c.attr("name", "")); name != "" {
				texts = []string{name}
			}
		}
		if len(texts) == 0 {
			continue
		}

		out = append(out, timeline.TextSegment{
			Text:  strings.Join(texts, " "),
			Start: round4(offset),
			End:   round4(offset + duration),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

func assetPathFromURL(src string) string {
	if !strings.HasPrefix(src, "file://") {
		return src
	}
	u, err := url.Parse(src)
	if err != nil {
		return src
	}
	p, err := url.PathUnescape(u.Path)
	if err != nil {
		return u.Path
	}
	return p
}

func atoiDefault(s string, def int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func round4(v float64) float64 { return math.Round(v*10000) / 10000 }

// node is a generic XML tree; FCP emits no namespace prefix in modern
// documents but older ones may, so lookups match on the local tag name.
type node struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Children []node     `xml:",any"`
	Text     string     `xml:",chardata"`
}

func (n *node) attr(name, def string) string {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return def
}

func (n *node) find(tag string) *node {
	hits := n.findAll(tag)
	if len(hits) == 0 {
		return nil
	}
	return hits[0]
}

func (n *node) findAll(tag string) []*node {
	var out []*node
	if n.XMLName.Local == tag {
		out = append(out, n)
	}
	for i := range n.Children {
		out = append(out, n.Children[i].findAll(tag)...)
	}
	return out
}

func (n *node) allText() string {
	var b strings.Builder
	b.WriteString(n.Text)
	for i := range n.Children {
		b.WriteString(n.Children[i].allText())
	}
	return b.String()
}
