package metrics

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/cognicore/uniscrape/pkg/uniscrape/nlp"
)

func TestComputeCounts(t *testing.T) {
	tokens := []nlp.Token{
		{Text: "Studenci", Lemma: "student", POS: nlp.POSNoun},
		{Text: "piszą", Lemma: "pisać", POS: nlp.POSVerb},
		{Text: "długie", Lemma: "długi", POS: nlp.POSAdj},
		{Text: "prace", Lemma: "praca", POS: nlp.POSNoun},
		{Text: ".", POS: nlp.POSPunct, Punct: true},
		{Text: "Student", Lemma: "student", POS: nlp.POSNoun},
		{Text: "pisze", Lemma: "pisać", POS: nlp.POSVerb},
		{Text: "\n", POS: nlp.POSSpace, Space: true},
		{Text: "!", POS: nlp.POSPunct, Punct: true},
	}
	sentences := []nlp.Sentence{{Start: 0, End: 5}, {Start: 5, End: 9}}
	raw := "Studenci piszą długie prace. Student pisze\n!"

	m := Compute(tokens, sentences, raw)

	if m.Characters != 44 {
		t.Errorf("Characters = %d, want 44", m.Characters)
	}
	if m.Words != 6 || m.Sentences != 2 {
		t.Errorf("Words = %d, Sentences = %d", m.Words, m.Sentences)
	}
	if m.Nouns != 3 || m.Verbs != 2 || m.Adjectives != 1 {
		t.Errorf("Nouns/Verbs/Adjectives = %d/%d/%d", m.Nouns, m.Verbs, m.Adjectives)
	}
	// 8+5+6+5+7+5 = 36 letters / 6 words
	if m.AvgWordLength != 6 {
		t.Errorf("AvgWordLength = %v, want 6", m.AvgWordLength)
	}
	if m.AvgSentenceLength != 4.5 {
		t.Errorf("AvgSentenceLength = %v, want 4.5", m.AvgSentenceLength)
	}
	// 4 unique lemmas / 6 words
	if m.LexicalDensity != 0.6667 {
		t.Errorf("LexicalDensity = %v, want 0.6667", m.LexicalDensity)
	}
	if m.GunningFog != 0 {
		t.Errorf("GunningFog = %v, want 0 from Compute", m.GunningFog)
	}
}

func TestComputeZeroWords(t *testing.T) {
	tokens := []nlp.Token{{Text: ".", Punct: true}, {Text: "!", Punct: true}}
	for _, tc := range []struct {
		tokens    []nlp.Token
		sentences []nlp.Sentence
	}{
		{nil, nil},
		{tokens, nil},
		{tokens, []nlp.Sentence{{Start: 0, End: 2}}},
	} {
		m := Compute(tc.tokens, tc.sentences, "")
		if m.Words != 0 || m.AvgWordLength != 0 || m.LexicalDensity != 0 {
			t.Errorf("expected zero metrics, got %+v", m)
		}
		if math.IsNaN(m.AvgSentenceLength) || math.IsInf(m.AvgSentenceLength, 0) {
			t.Errorf("AvgSentenceLength = %v", m.AvgSentenceLength)
		}
	}
}

type fakeScorer struct {
	score float64
	err   error
	calls int
}

func (s *fakeScorer) Score(string, string) (float64, error) {
	s.calls++
	return s.score, s.err
}

func TestEngineFog(t *testing.T) {
	scorer := &fakeScorer{score: 12.345678}
	e := Engine{Scorer: scorer, Language: "pl"}
	tokens := []nlp.Token{{Text: "Słowo", Lemma: "słowo", POS: nlp.POSNoun}}

	m, err := e.Compute(tokens, []nlp.Sentence{{Start: 0, End: 1}}, "Słowo")
	if err != nil {
		t.Fatal(err)
	}
	if m.GunningFog != 12.3457 {
		t.Errorf("GunningFog = %v, want 12.3457", m.GunningFog)
	}

	if _, err := e.Compute(nil, nil, ""); err != nil {
		t.Fatal(err)
	}
	if scorer.calls != 1 {
		t.Errorf("scorer called %d times, want 1 (not for zero words)", scorer.calls)
	}
}

func TestEngineScorerError(t *testing.T) {
	e := Engine{Scorer: &fakeScorer{err: errors.New("boom")}}
	tokens := []nlp.Token{{Text: "a"}}
	m, err := e.Compute(tokens, nil, "a")
	if err == nil {
		t.Fatal("expected error")
	}
	if m.Words != 1 || m.GunningFog != 0 {
		t.Errorf("counts must survive a scorer failure, got %+v", m)
	}
}

func TestEngineWithRuleTagger(t *testing.T) {
	tagger, err := nlp.DefaultRuleTagger()
	if err != nil {
		t.Fatal(err)
	}
	text := "Uniwersytet ogłasza konkurs. Kandydaci składają dokumenty."
	a, err := tagger.Tag(context.Background(), text)
	if err != nil {
		t.Fatal(err)
	}
	m, err := Engine{Scorer: FogScorer{}, Language: "pl"}.Compute(a.Tokens, a.Sentences, text)
	if err != nil {
		t.Fatal(err)
	}
	if m.Words != 6 || m.Sentences != 2 {
		t.Errorf("Words = %d, Sentences = %d", m.Words, m.Sentences)
	}
	if m.GunningFog <= 0 {
		t.Errorf("GunningFog = %v, want > 0", m.GunningFog)
	}
}

func TestFogScorer(t *testing.T) {
	// 2 sentences, 6 words; complex: "uniwersytet", "informacje" (>= 3 syllables)
	text := "Uniwersytet ma dom. Są tam informacje."
	got, err := FogScorer{}.Score(text, "pl")
	if err != nil {
		t.Fatal(err)
	}
	want := 0.4 * (6.0/2.0 + 100*2.0/6.0)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("Score = %v, want %v", got, want)
	}

	if got, _ := (FogScorer{}).Score("... !!", "pl"); got != 0 {
		t.Errorf("Score without words = %v, want 0", got)
	}
}

func TestSyllables(t *testing.T) {
	tests := map[string]int{
		"dom":            1,
		"nie":            1,
		"ciasto":         2,
		"uniwersytet":    5,
		"informacje":     4,
		"ząb":            1,
		"rzeczpospolita": 5,
	}
	for word, want := range tests {
		if got := syllables(word, "pl"); got != want {
			t.Errorf("syllables(%q) = %d, want %d", word, got, want)
		}
	}
	if got := syllables("reading", "en"); got != 2 {
		t.Errorf("syllables(reading, en) = %d, want 2", got)
	}
}

func TestRound(t *testing.T) {
	if Round(1.23456) != 1.2346 || Round(2.0/3.0) != 0.6667 {
		t.Error("unexpected rounding")
	}
}
