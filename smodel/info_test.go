package smodel

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteInfo(t *testing.T) {
	var buf bytes.Buffer
	m := newTestGTR(t)
	require.NoError(t, m.WriteInfo(&buf))
	s := buf.String()
	assert.Contains(t, s, "Model: GTR")
	assert.Contains(t, s, "r_AC=1.5")
	assert.Contains(t, s, "pi(T)=0.40000")
	assert.Contains(t, s, "Eigenvalues:")

	buf.Reset()
	p, _ := newTestPartition(t)
	require.NoError(t, p.WriteInfo(&buf))
	assert.Contains(t, buf.String(), "Partition 3:")

	buf.Reset()
	ss, err := NewSiteSpecific("", siteFreqs)
	require.NoError(t, err)
	require.NoError(t, ss.WriteInfo(&buf))
	assert.Contains(t, buf.String(), "Sites: 3")
}
