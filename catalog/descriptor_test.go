package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisplayName(t *testing.T) {
	cases := map[string]string{
		"country_a.obf":                   "country a",
		"Germany_berlin_europe_2.obf.zip": "Germany berlin europe 2",
		"en-tts.voice.zip":                "en-tts",
		"noext":                           "noext",
		".obf":                            "",
		"__x__.sqlite":                    "  x  ",
	}
	for in, expected := range cases {
		name := DisplayName(in)
		assert.Equal(t, expected, name, in)
		// already normalized names are unchanged
		assert.Equal(t, name, DisplayName(name), in)
	}
}

func TestDescriptorValid(t *testing.T) {
	d := &Descriptor{Name: "x", Path: "/r/x.obf", FileSize: 10}
	assert.False(t, d.Valid(), "unresolved")
	d.SetContentSize(10)
	assert.True(t, d.Valid())
	d.SetContentSize(20)
	assert.Equal(t, uint64(10), d.ContentSize, "content size is set once")

	empty := &Descriptor{Path: "/r/.obf", FileSize: 10}
	empty.SetContentSize(10)
	assert.False(t, empty.Valid(), "empty name")

	zero := &Descriptor{Name: "z", Path: "/r/z.obf"}
	zero.SetContentSize(0)
	assert.False(t, zero.Valid(), "zero length file")

	hollow := &Descriptor{Name: "h", Path: "/r/h.obf.zip", FileSize: 22}
	hollow.SetContentSize(0)
	assert.False(t, hollow.Valid(), "archive without content")
}

func TestDescriptorArchive(t *testing.T) {
	d := &Descriptor{Name: "en", Path: "/r/indexes/en.voice.zip", Type: Voice}
	assert.True(t, d.IsArchive())
	assert.Equal(t, "en.voice.zip", d.FileName())
	assert.Equal(t, "Voice package: en", d.Title())
	assert.False(t, (&Descriptor{Path: "/r/a.obf"}).IsArchive())
}
