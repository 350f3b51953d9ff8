package bio

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSenseCodons(t *testing.T) {
	assert.Len(t, SenseCodons, 61)
	assert.Equal(t, "TTT", SenseCodons[0])
	assert.Equal(t, "GGG", SenseCodons[60])
	for i, c := range SenseCodons {
		assert.False(t, IsStopCodon(c))
		assert.Equal(t, i, codonIndex[c])
	}
}

func TestTranslate(t *testing.T) {
	p, err := Translate("atgGCUtaa")
	require.NoError(t, err)
	assert.Equal(t, "MA", p)

	p, err = Translate("ATG---GCNTGG")
	require.NoError(t, err)
	assert.Equal(t, "M--W", p)

	_, err = Translate("ATGTAAGCT")
	assert.EqualError(t, err, "premature stop codon at position 2")
	_, err = Translate("ATGG")
	assert.Error(t, err)
}

func TestCodonDiff(t *testing.T) {
	assert.Equal(t, Identical, CodonDiff("ATG", "ATG"))
	assert.Equal(t, Transition, CodonDiff("ATG", "GTG"))
	assert.Equal(t, Transition, CodonDiff("TTT", "TTC"))
	assert.Equal(t, Transversion, CodonDiff("ATG", "CTG"))
	assert.Equal(t, Multiple, CodonDiff("ATG", "CCG"))
	assert.True(t, IsSynonymous("TTT", "TTC"))
	assert.False(t, IsSynonymous("TTT", "TTA"))
}

func TestParseFasta(t *testing.T) {
	seqs, err := ParseFasta(strings.NewReader(">a\nac gt\nAA\n\n>b\nACGTTA\n"))
	require.NoError(t, err)
	require.Len(t, seqs, 2)
	assert.Equal(t, "ACGTAA", seqs[0].Sequence)
	assert.Equal(t, "b", seqs[1].Name)

	_, err = ParseFasta(strings.NewReader("ACGT\n"))
	assert.Error(t, err)
}

func TestPairCounts(t *testing.T) {
	s1 := States("ACG-T", DNA)
	s2 := States("ACTAT", DNA)
	assert.Equal(t, []int{0, 1, 2, -1, 3}, s1)
	counts, err := PairCounts(s1, s2, 4)
	require.NoError(t, err)
	assert.Equal(t, 1.0, counts[0][0])
	assert.Equal(t, 1.0, counts[2][3])
	assert.Equal(t, 1.0, counts[3][3])

	_, err = PairCounts(s1, s2[:2], 4)
	assert.Error(t, err)

	cs, err := CodonStates("TTTGGGNNN")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 60, -1}, cs)
	_, err = CodonStates("TTTTAA")
	assert.Error(t, err)
}
