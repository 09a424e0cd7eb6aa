// Package content defines the playlist model: typed content items, their
// resolution to navigable render targets, and the cursor-tracking bank the
// rotation loop walks.
package content

import (
	"fmt"
	"html"
	"maps"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Kind identifies how an item's source becomes a render target.
type Kind string

const (
	// KindURL renders the source address directly.
	KindURL Kind = "url"
	// KindHTML renders a local HTML file.
	KindHTML Kind = "html"
	// KindImage wraps a local image in a full-viewport page.
	KindImage Kind = "image"
	// KindVideo wraps a local video in a full-viewport page.
	KindVideo Kind = "video"
	// KindError is synthesized for unrenderable content, never user-authored.
	KindError Kind = "error"
)

// ParseKind maps a config string to a Kind. Unknown or empty values fall
// back to KindURL so a hand-edited config cannot take the display down.
func ParseKind(s string) Kind {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindURL, KindHTML, KindImage, KindVideo:
		return k
	default:
		return KindURL
	}
}

// Item is one playlist entry. ID is unique per process lifetime and
// regenerated on every config load; identity across loads is Key.
type Item struct {
	ID       string
	Kind     Kind
	Source   string
	Duration int // dwell seconds; 0 means use the global default
	Metadata map[string]string
}

// NewItem builds an item with a fresh ID and its own copy of metadata.
func NewItem(kind Kind, source string, duration int, metadata map[string]string) Item {
	return Item{
		ID:       uuid.New().String(),
		Kind:     kind,
		Source:   source,
		Duration: duration,
		Metadata: maps.Clone(metadata),
	}
}

// Key identifies an item across config loads.
type Key struct {
	Kind   Kind
	Source string
}

// Key returns the item's cross-load identity.
func (i Item) Key() Key {
	return Key{Kind: i.Kind, Source: i.Source}
}

// Resolve turns the item into a URL the render surface can navigate to.
// It never fails: a file-backed kind whose path is missing resolves to an
// error page naming the path.
func (i Item) Resolve() string {
	switch i.Kind {
	case KindURL:
		return i.Source
	case KindHTML:
		path, err := resolvePath(i.Source)
		if err != nil {
			return errorTarget(err.Error())
		}
		return "file://" + path
	case KindImage:
		path, err := resolvePath(i.Source)
		if err != nil {
			return errorTarget(err.Error())
		}
		return imageTarget(path)
	case KindVideo:
		path, err := resolvePath(i.Source)
		if err != nil {
			return errorTarget(err.Error())
		}
		return videoTarget(path)
	case KindError:
		return errorTarget(i.Source)
	default:
		return errorTarget(fmt.Sprintf("unknown content kind %q", string(i.Kind)))
	}
}

// resolvePath expands a leading ~, absolutizes the path and verifies it
// exists on disk.
func resolvePath(source string) (string, error) {
	path := source
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("not found: %s", path)
	}
	if _, err := os.Stat(abs); err != nil {
		return "", fmt.Errorf("not found: %s", abs)
	}
	return abs, nil
}

const dataTargetPrefix = "data:text/html;charset=utf-8,"

// dataTarget embeds a document into a data: URI. Only the five HTML-special
// characters are escaped, so file paths stay literal in the target.
func dataTarget(doc string) string {
	return dataTargetPrefix + html.EscapeString(doc)
}

func imageTarget(path string) string {
	esc := html.EscapeString(path)
	doc := `<!doctype html><meta charset="utf-8">
<style>html,body{margin:0;height:100%;background:#000}
img{width:100vw;height:100vh;object-fit:contain;}</style>
<img src="file://` + esc + `" />`
	return dataTarget(doc)
}

func videoTarget(path string) string {
	esc := html.EscapeString(path)
	doc := `<!doctype html><meta charset="utf-8">
<style>html,body{margin:0;height:100%;background:#000}
video{width:100vw;height:100vh;object-fit:contain;background:#000}</style>
<video src="file://` + esc + `" autoplay muted loop playsinline controlslist="nodownload noplaybackrate" controls></video>`
	return dataTarget(doc)
}

func errorTarget(msg string) string {
	if msg == "" {
		msg = "Error"
	}
	doc := "<!doctype html><meta charset='utf-8'>" +
		"<body style='margin:0;background:#000;color:#f55;font:16px sans-serif;" +
		"display:flex;align-items:center;justify-content:center;height:100vh;'>" +
		"Error: " + html.EscapeString(msg) + "</body>"
	return dataTarget(doc)
}
