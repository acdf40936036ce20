// Package knowledge holds the breed, diet, sample-question and class-index
// reference data. A Store is built once at startup and is read-only after.
package knowledge

import (
	"errors"
	"fmt"
	"os"
)

// ErrReferenceDataLoad is returned when a reference document is missing or
// malformed. It is fatal at startup.
var ErrReferenceDataLoad = errors.New("failed to load reference data")

// Sources carries the four serialized reference documents.
type Sources struct {
	Breeds          []byte
	Diets           []byte
	SampleQuestions []byte
	ClassIndex      []byte
}

// Paths locates the four reference documents on disk.
type Paths struct {
	Breeds          string
	Diets           string
	SampleQuestions string
	ClassIndex      string
}

// Store answers breed and diet lookups by normalized name.
type Store struct {
	breeds     *keyedRecords
	diets      *keyedRecords
	questions  []string
	classIndex ClassIndex
}

// New parses the reference documents.
func New(src Sources) (*Store, error) {
	breeds, err := decodeKeyed(src.Breeds, "Breed", "")
	if err != nil {
		return nil, fmt.Errorf("%w: breeds: %v", ErrReferenceDataLoad, err)
	}
	diets, err := decodeKeyed(src.Diets, "name", "diet_plan")
	if err != nil {
		return nil, fmt.Errorf("%w: diets: %v", ErrReferenceDataLoad, err)
	}
	questions, err := decodeQuestions(src.SampleQuestions)
	if err != nil {
		return nil, fmt.Errorf("%w: sample questions: %v", ErrReferenceDataLoad, err)
	}
	classIndex, err := ParseClassIndex(src.ClassIndex)
	if err != nil {
		return nil, fmt.Errorf("%w: class index: %v", ErrReferenceDataLoad, err)
	}

	return &Store{
		breeds:     breeds,
		diets:      diets,
		questions:  questions,
		classIndex: classIndex,
	}, nil
}

// LoadFiles reads the reference documents from disk and parses them.
func LoadFiles(p Paths) (*Store, error) {
	var src Sources
	for _, f := range []struct {
		path string
		dst  *[]byte
	}{
		{p.Breeds, &src.Breeds},
		{p.Diets, &src.Diets},
		{p.SampleQuestions, &src.SampleQuestions},
		{p.ClassIndex, &src.ClassIndex},
	} {
		data, err := os.ReadFile(f.path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrReferenceDataLoad, err)
		}
		*f.dst = data
	}
	return New(src)
}

// BreedInfo returns the record for a breed.
func (s *Store) BreedInfo(name string) (Record, bool) {
	rec, ok := s.breeds.records[Normalize(name)]
	return rec, ok
}

// DietPlan returns the full diet plan for a breed.
func (s *Store) DietPlan(name string) (Record, bool) {
	rec, ok := s.diets.records[Normalize(name)]
	return rec, ok
}

// DietInfo returns one life stage of a breed's diet plan. It is false when the
// breed has no plan, the plan is not an object, or the stage is empty or
// absent. Use DietPlan for the whole plan.
func (s *Store) DietInfo(name, lifeStage string) (Record, bool) {
	if Normalize(lifeStage) == "" {
		return nil, false
	}
	plan, ok := s.DietPlan(name)
	if !ok {
		return nil, false
	}
	return plan.Field(lifeStage)
}

// BreedKeys returns the normalized breed keys in document order.
func (s *Store) BreedKeys() []string {
	out := make([]string, len(s.breeds.keys))
	copy(out, s.breeds.keys)
	return out
}

// Breeds returns every breed record keyed by normalized name.
func (s *Store) Breeds() map[string]Record {
	out := make(map[string]Record, len(s.breeds.records))
	for k, v := range s.breeds.records {
		out[k] = v
	}
	return out
}

// SampleQuestions returns the suggested questions in document order.
func (s *Store) SampleQuestions() []string {
	out := make([]string, len(s.questions))
	copy(out, s.questions)
	return out
}

// ClassIndex returns the classifier label map.
func (s *Store) ClassIndex() ClassIndex {
	return s.classIndex
}
