package sniperz

import (
	"testing"

	assert_ "github.com/stretchr/testify/assert"
)

func TestTargetFilename(t *testing.T) {
	assert := assert_.New(t)
	namer := NewTargetNamer()

	name, err := namer.TargetFilename(&VideoRecord{ID: "abc123", Title: "A Nice Video"})
	assert.NoError(err)
	assert.Equal("A Nice Video [abc123].mp4", name)

	// Filesystem-hostile characters are replaced
	name, err = namer.TargetFilename(&VideoRecord{ID: "x1", Title: `Why? Because: "reasons" <here>`})
	assert.NoError(err)
	assert.Equal("Why_ Because_ _reasons_ _here_ [x1].mp4", name)

	// An empty or unusable title falls back to a placeholder
	name, err = namer.TargetFilename(&VideoRecord{ID: "x2", Title: "   "})
	assert.NoError(err)
	assert.Equal("untitled [x2].mp4", name)
}
