package tagstore

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bogem/id3v2/v2"
)

const txxxDescription = "User defined text information frame"

// ID3Backend stores frames as ID3v2 TXXX frames inside MP3 files.
type ID3Backend struct{}

func NewID3Backend() *ID3Backend {
	return &ID3Backend{}
}

func (b *ID3Backend) open(location string) (*id3v2.Tag, error) {
	if !strings.EqualFold(filepath.Ext(location), ".mp3") {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, location)
	}
	tag, err := id3v2.Open(location, id3v2.Options{Parse: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open ID3 tag: %w", err)
	}
	return tag, nil
}

func userTextFrames(tag *id3v2.Tag) []id3v2.UserDefinedTextFrame {
	var out []id3v2.UserDefinedTextFrame
	for _, f := range tag.GetFrames(tag.CommonID(txxxDescription)) {
		if udtf, ok := f.(id3v2.UserDefinedTextFrame); ok {
			out = append(out, udtf)
		}
	}
	return out
}

// joinValues reads a frame holding several null-separated JSON texts as one
// JSON list, dropping empty entries. The tag reader strips the separator
// that ends a one-element list, and an empty list arrives as an empty value.
// Frames are always written back as a single JSON text.
func joinValues(value string) string {
	if value == "" {
		return "[]"
	}
	if !strings.Contains(value, "\x00") {
		return value
	}
	parts := slices.DeleteFunc(strings.Split(value, "\x00"), func(s string) bool { return s == "" })
	return "[" + strings.Join(parts, ",") + "]"
}

func (b *ID3Backend) Load(ctx context.Context, location, prefix string) (Frames, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tag, err := b.open(location)
	if err != nil {
		return nil, err
	}
	defer tag.Close()

	frames := Frames{}
	for _, udtf := range userTextFrames(tag) {
		if strings.HasPrefix(udtf.Description, prefix) {
			frames[udtf.Description] = joinValues(udtf.Value)
		}
	}
	return frames, nil
}

func (b *ID3Backend) Save(ctx context.Context, location, prefix string, frames Frames) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tag, err := b.open(location)
	if err != nil {
		return err
	}
	defer tag.Close()

	existing := userTextFrames(tag)
	tag.DeleteFrames(tag.CommonID(txxxDescription))
	for _, udtf := range existing {
		if !strings.HasPrefix(udtf.Description, prefix) {
			tag.AddUserDefinedTextFrame(udtf)
		}
	}
	for desc, text := range frames {
		tag.AddUserDefinedTextFrame(id3v2.UserDefinedTextFrame{
			Encoding:    id3v2.EncodingUTF8,
			Description: desc,
			Value:       text,
		})
	}

	// UTF-8 text frames need ID3v2.4.
	tag.SetVersion(4)
	if err := tag.Save(); err != nil {
		return fmt.Errorf("failed to write ID3 tag: %w", err)
	}
	return nil
}
