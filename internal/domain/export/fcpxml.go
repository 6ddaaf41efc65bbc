package export

import (
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"net/url"
	"path/filepath"

	"github.com/forPelevin/ftedit/internal/domain/fcpxml"
	"github.com/forPelevin/ftedit/internal/domain/session"
	"github.com/forPelevin/ftedit/internal/domain/timeline"
)

// FCPXML writes a Final Cut Pro XML document whose spine is one asset-clip
// per keep range. Every time attribute is rendered in rational time at the
// 44100 timescale, converted independently from absolute seconds; only the
// sequence offset is accumulated, and that in integer timescale ticks.
func FCPXML(w io.Writer, s *session.Session, ranges []timeline.Range) error {
	const ts = fcpxml.DefaultTimescale

	version := s.FCPXMLVersion
	if version == "" {
		version = "1.11"
	}
	formatID := s.FCPXMLFormatID
	if formatID == "" {
		formatID = "r1"
	}
	assetID := s.FCPXMLAssetID
	if assetID == "" {
		assetID = "r2"
	}

	name := filepath.Base(s.VideoPath)
	doc := xmlDocument{
		Version: version,
		Resources: xmlResources{
			Format: xmlFormat{
				ID:            formatID,
				Name:          fmt.Sprintf("FFVideoFormat%dx%dp%s", s.Width, s.Height, fpsTag(s.FPS)),
				FrameDuration: frameDuration(s.FPS),
				Width:         s.Width,
				Height:        s.Height,
			},
			Asset: xmlAsset{
				ID:       assetID,
				Name:     name,
				Format:   formatID,
				Duration: fcpxml.FormatTime(s.Duration, ts),
				HasVideo: "1",
				HasAudio: "1",
				MediaRep: xmlMediaRep{
					Kind: "original-media",
					Src:  fileURL(s.VideoPath),
				},
			},
		},
	}

	var offsetTicks int64
	var clips []xmlAssetClip
	for _, r := range ranges {
		startTicks := int64(math.Round(r.Start * ts))
		endTicks := int64(math.Round(r.End * ts))
		if endTicks <= startTicks {
			continue
		}
		durTicks := endTicks - startTicks
		clips = append(clips, xmlAssetClip{
			Ref:      assetID,
			Name:     name,
			Offset:   ratTime(offsetTicks, ts),
			Start:    ratTime(startTicks, ts),
			Duration: ratTime(durTicks, ts),
			Format:   formatID,
		})
		offsetTicks += durTicks
	}

	doc.Library = xmlLibrary{
		Event: xmlEvent{
			Name: name,
			Project: xmlProject{
				Name: name + " (edited)",
				Sequence: xmlSequence{
					Format:   formatID,
					Duration: ratTime(offsetTicks, ts),
					TCStart:  "0s",
					TCFormat: "NDF",
					Spine:    xmlSpine{Clips: clips},
				},
			},
		},
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	if _, err := io.WriteString(w, "<!DOCTYPE fcpxml>\n"); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "    ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode fcpxml: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func ratTime(ticks int64, timescale int) string {
	if ticks == 0 {
		return "0s"
	}
	return fmt.Sprintf("%d/%ds", ticks, timescale)
}

// frameDuration renders one frame as a rational. NTSC rates get their exact
// 1001-based form; everything else is treated as an integer rate.
func frameDuration(fps float64) string {
	switch {
	case math.Abs(fps-23.976) < 0.01:
		return "1001/24000s"
	case math.Abs(fps-29.97) < 0.01:
		return "1001/30000s"
	case math.Abs(fps-59.94) < 0.01:
		return "1001/60000s"
	default:
		n := int(math.Round(fps))
		if n <= 0 {
			n = 25
		}
		return fmt.Sprintf("1/%ds", n)
	}
}

func fpsTag(fps float64) string {
	n := int(math.Round(fps))
	if n <= 0 {
		n = 25
	}
	return fmt.Sprintf("%d", n)
}

func fileURL(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	return u.String()
}

type xmlDocument struct {
	XMLName   xml.Name     `xml:"fcpxml"`
	Version   string       `xml:"version,attr"`
	Resources xmlResources `xml:"resources"`
	Library   xmlLibrary   `xml:"library"`
}

type xmlResources struct {
	Format xmlFormat `xml:"format"`
	Asset  xmlAsset  `xml:"asset"`
}

type xmlFormat struct {
	ID            string `xml:"id,attr"`
	Name          string `xml:"name,attr"`
	FrameDuration string `xml:"frameDuration,attr"`
	Width         int    `xml:"width,attr"`
	Height        int    `xml:"height,attr"`
}

type xmlAsset struct {
	ID       string      `xml:"id,attr"`
	Name     string      `xml:"name,attr"`
	Format   string      `xml:"format,attr"`
	Duration string      `xml:"duration,attr"`
	HasVideo string      `xml:"hasVideo,attr"`
	HasAudio string      `xml:"hasAudio,attr"`
	MediaRep xmlMediaRep `xml:"media-rep"`
}

type xmlMediaRep struct {
	Kind string `xml:"kind,attr"`
	Src  string `xml:"src,attr"`
}

type xmlLibrary struct {
	Event xmlEvent `xml:"event"`
}

type xmlEvent struct {
	Name    string     `xml:"name,attr"`
	Project xmlProject `xml:"project"`
}

type xmlProject struct {
	Name     string      `xml:"name,attr"`
	Sequence xmlSequence `xml:"sequence"`
}

type xmlSequence struct {
	Format   string   `xml:"format,attr"`
	Duration string   `xml:"duration,attr"`
	TCStart  string   `xml:"tcStart,attr"`
	TCFormat string   `xml:"tcFormat,attr"`
	Spine    xmlSpine `xml:"spine"`
}

type xmlSpine struct {
	Clips []xmlAssetClip `xml:"asset-clip"`
}

type xmlAssetClip struct {
	Ref      string `xml:"ref,attr"`
	Name     string `xml:"name,attr"`
	Offset   string `xml:"offset,attr"`
	Start    string `xml:"start,attr"`
	Duration string `xml:"duration,attr"`
	Format   string `xml:"format,attr"`
}
