// Package bio provides alphabets, the genetic code and FASTA parsing.
package bio

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	// DNA is the nucleotide alphabet in the order used by the models.
	DNA = "ACGT"
	// Protein is the amino acid alphabet.
	Protein = "ARNDCQEGHILKMFPSTWYV"
	// Binary is the alphabet of two-state characters.
	Binary = "01"
	// codonLetters is the nucleotide order used to enumerate codons.
	codonLetters = "TCAG"
)

var (
	// GeneticCode is a map, codon string (capital letters) is the key,
	// amino acids (capital letter) are values.
	GeneticCode = map[string]byte{
		"ATA": 'I', "ATC": 'I', "ATT": 'I', "ATG": 'M',
		"ACA": 'T', "ACC": 'T', "ACG": 'T', "ACT": 'T',
		"AAC": 'N', "AAT": 'N', "AAA": 'K', "AAG": 'K',
		"AGC": 'S', "AGT": 'S', "AGA": 'R', "AGG": 'R',
		"CTA": 'L', "CTC": 'L', "CTG": 'L', "CTT": 'L',
		"CCA": 'P', "CCC": 'P', "CCG": 'P', "CCT": 'P',
		"CAC": 'H', "CAT": 'H', "CAA": 'Q', "CAG": 'Q',
		"CGA": 'R', "CGC": 'R', "CGG": 'R', "CGT": 'R',
		"GTA": 'V', "GTC": 'V', "GTG": 'V', "GTT": 'V',
		"GCA": 'A', "GCC": 'A', "GCG": 'A', "GCT": 'A',
		"GAC": 'D', "GAT": 'D', "GAA": 'E', "GAG": 'E',
		"GGA": 'G', "GGC": 'G', "GGG": 'G', "GGT": 'G',
		"TCA": 'S', "TCC": 'S', "TCG": 'S', "TCT": 'S',
		"TTC": 'F', "TTT": 'F', "TTA": 'L', "TTG": 'L',
		"TAC": 'Y', "TAT": 'Y', "TAA": '_', "TAG": '_',
		"TGC": 'C', "TGT": 'C', "TGA": '_', "TGG": 'W'}
	// SenseCodons are the non-stop codons in TCAG order.
	SenseCodons []string
	// codonIndex maps a sense codon to its' position in SenseCodons.
	codonIndex map[string]int
)

func init() {
	codonIndex = make(map[string]int, 61)
	for _, l1 := range codonLetters {
		for _, l2 := range codonLetters {
			for _, l3 := range codonLetters {
				codon := string([]rune{l1, l2, l3})
				if IsStopCodon(codon) {
					continue
				}
				codonIndex[codon] = len(SenseCodons)
				SenseCodons = append(SenseCodons, codon)
			}
		}
	}
}

// IsStopCodon tests if the string is a stop-codon (DNA alphabet,
// capital letters).
func IsStopCodon(codon string) bool {
	return GeneticCode[codon] == '_'
}

// Translate translates an aligned nucleotide sequence into a protein
// sequence. Gap and ambiguous codons become '-' so that translated
// sequences stay aligned. A terminal stop codon is dropped, any other
// stop codon is an error.
func Translate(nseq string) (string, error) {
	if len(nseq)%3 != 0 {
		return "", errors.New("sequence length doesn't divide by 3")
	}
	nseq = strings.Replace(strings.ToUpper(nseq), "U", "T", -1)

	var buffer strings.Builder
	buffer.Grow(len(nseq) / 3)
	for i := 0; i < len(nseq); i += 3 {
		switch aa := GeneticCode[nseq[i:i+3]]; aa {
		case 0:
			buffer.WriteByte('-')
		case '_':
			if i+3 < len(nseq) {
				return "", fmt.Errorf("premature stop codon at position %d", i/3+1)
			}
		default:
			buffer.WriteByte(aa)
		}
	}
	return buffer.String(), nil
}

// NucDiff describes the difference between two codons.
type NucDiff int

const (
	// Identical codons.
	Identical NucDiff = iota
	// Transition is a single A<->G or C<->T substitution.
	Transition
	// Transversion is a single purine<->pyrimidine substitution.
	Transversion
	// Multiple is more than one substitution.
	Multiple
)

// CodonDiff classifies the difference between two codons.
func CodonDiff(c1, c2 string) NucDiff {
	diff := Identical
	for i := 0; i < 3; i++ {
		if c1[i] == c2[i] {
			continue
		}
		if diff != Identical {
			return Multiple
		}
		if isPurine(c1[i]) == isPurine(c2[i]) {
			diff = Transition
		} else {
			diff = Transversion
		}
	}
	return diff
}

func isPurine(n byte) bool {
	return n == 'A' || n == 'G'
}

// IsSynonymous returns true if two codons code the same amino acid.
func IsSynonymous(c1, c2 string) bool {
	return GeneticCode[c1] == GeneticCode[c2]
}

// Sequence is a type which is intended for storing nucleotide or
// protein sequence with it's name.
type Sequence struct {
	Name     string
	Sequence string
}

// Sequences stores multiple sequences. E.g. a sequence alignment.
type Sequences []Sequence

// ParseFasta parses FASTA sequences from a reader.
func ParseFasta(rd io.Reader) (seqs Sequences, err error) {
	seqs = make(Sequences, 0, 10)
	scanner := bufio.NewScanner(rd)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line[0] == '>' {
			seq := Sequence{Name: line[1:]}
			seqs = append(seqs, seq)
		} else {
			if len(seqs) == 0 {
				return nil, errors.New("sequence w/o prefix")
			}
			line = strings.ToUpper(strings.Replace(line, " ", "", -1))
			seqs[len(seqs)-1].Sequence += line
		}
	}
	return seqs, scanner.Err()
}

// States converts a sequence into state indices of the alphabet.
// Characters not in the alphabet (gaps, ambiguities) become -1.
func States(seq, alphabet string) []int {
	states := make([]int, len(seq))
	for i := 0; i < len(seq); i++ {
		states[i] = strings.IndexByte(alphabet, seq[i])
	}
	return states
}

// CodonStates converts a nucleotide sequence into sense codon
// indices. Gaps and ambiguous codons become -1; a stop codon is an
// error.
func CodonStates(seq string) ([]int, error) {
	if len(seq)%3 != 0 {
		return nil, errors.New("sequence length doesn't divide by 3")
	}
	seq = strings.Replace(seq, "U", "T", -1)
	states := make([]int, len(seq)/3)
	for i := range states {
		codon := seq[i*3 : i*3+3]
		if IsStopCodon(codon) {
			return nil, fmt.Errorf("stop codon at position %d", i+1)
		}
		if j, ok := codonIndex[codon]; ok {
			states[i] = j
		} else {
			states[i] = -1
		}
	}
	return states, nil
}

// PairCounts counts state pairs of two aligned state sequences.
// Positions where any state is unknown are skipped.
func PairCounts(s1, s2 []int, n int) ([][]float64, error) {
	if len(s1) != len(s2) {
		return nil, errors.New("sequences have different lengths")
	}
	counts := make([][]float64, n)
	for i := range counts {
		counts[i] = make([]float64, n)
	}
	for i := range s1 {
		if s1[i] < 0 || s2[i] < 0 {
			continue
		}
		counts[s1[i]][s2[i]]++
	}
	return counts, nil
}
