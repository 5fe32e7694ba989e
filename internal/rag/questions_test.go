package rag

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validQuestionsJSON = `[
  {
    "question": "What is photosynthesis?",
    "choices": ["A digestion process", "Light to chemical energy conversion", "A type of respiration", "Cell division"],
    "correct_answer": 1,
    "explanation": "Photosynthesis converts light energy into chemical energy."
  },
  {
    "question": "Where does photosynthesis occur?",
    "choices": ["Mitochondria", "Nucleus", "Chloroplasts", "Ribosomes"],
    "correct_answer": 2,
    "explanation": "Chloroplasts contain the chlorophyll that drives the reaction."
  }
]`

func TestGenerateQuestions_Valid(t *testing.T) {
	generator := &fakeGenerator{response: validQuestionsJSON}
	svc, _, err := newTestService(&fakeEmbedder{}, generator)
	require.NoError(t, err)

	result, err := svc.GenerateQuestions(context.Background(), QuestionRequest{
		Topic:         "photosynthesis",
		QuestionCount: 5,
		Difficulty:    "medium",
		QuestionTypes: []string{"factual"},
	})
	require.NoError(t, err)

	assert.Equal(t, "photosynthesis", result.Topic)
	assert.Equal(t, "medium", result.Difficulty)
	assert.Equal(t, []string{"factual"}, result.QuestionTypes)
	assert.False(t, result.ContextUsed)
	assert.Zero(t, result.ContextChunksUsed)
	require.Len(t, result.Questions, 2)
	assert.Equal(t, "What is photosynthesis?", result.Questions[0].Question)
	assert.Equal(t, 1, result.Questions[0].CorrectAnswer)
}

func TestGenerateQuestions_MalformedJSONFallsBack(t *testing.T) {
	generator := &fakeGenerator{response: "I'm sorry, here are some questions: 1) ..."}
	svc, _, err := newTestService(&fakeEmbedder{}, generator)
	require.NoError(t, err)

	result, err := svc.GenerateQuestions(context.Background(), QuestionRequest{
		Topic:         "gravity",
		QuestionCount: 3,
	})
	require.NoError(t, err, "fallback must never raise")

	require.Len(t, result.Questions, 1)
	q := result.Questions[0]
	assert.Len(t, q.Choices, 4)
	assert.Equal(t, 3, q.CorrectAnswer)
	assert.Contains(t, q.Question, "gravity")
}

func TestGenerateQuestions_ValidationFailures(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"not an array", `{"question": "q"}`},
		{"missing field", `[{"question": "q", "choices": ["a","b","c","d"], "correct_answer": 0}]`},
		{"three choices", `[{"question": "q", "choices": ["a","b","c"], "correct_answer": 0, "explanation": "e"}]`},
		{"five choices", `[{"question": "q", "choices": ["a","b","c","d","e"], "correct_answer": 0, "explanation": "e"}]`},
		{"answer too large", `[{"question": "q", "choices": ["a","b","c","d"], "correct_answer": 4, "explanation": "e"}]`},
		{"answer negative", `[{"question": "q", "choices": ["a","b","c","d"], "correct_answer": -1, "explanation": "e"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			generator := &fakeGenerator{response: tt.response}
			svc, _, err := newTestService(&fakeEmbedder{}, generator)
			require.NoError(t, err)

			result, err := svc.GenerateQuestions(context.Background(), QuestionRequest{Topic: "topic", QuestionCount: 1})
			require.NoError(t, err)
			require.Len(t, result.Questions, 1)
			assert.Equal(t, 3, result.Questions[0].CorrectAnswer)
			assert.Len(t, result.Questions[0].Choices, 4)
		})
	}
}

func TestGenerateQuestions_TruncatesToRequestedCount(t *testing.T) {
	generator := &fakeGenerator{response: validQuestionsJSON}
	svc, _, err := newTestService(&fakeEmbedder{}, generator)
	require.NoError(t, err)

	result, err := svc.GenerateQuestions(context.Background(), QuestionRequest{
		Topic:         "photosynthesis",
		QuestionCount: 1,
	})
	require.NoError(t, err)

	// Provider returned 2 valid questions; only the first survives.
	require.Len(t, result.Questions, 1)
	assert.Equal(t, "What is photosynthesis?", result.Questions[0].Question)
}

func TestGenerateQuestions_ProviderErrorSurfaces(t *testing.T) {
	generator := &fakeGenerator{err: errors.New("model overloaded")}
	svc, _, err := newTestService(&fakeEmbedder{}, generator)
	require.NoError(t, err)

	_, err = svc.GenerateQuestions(context.Background(), QuestionRequest{Topic: "topic"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model overloaded")
}

func TestGenerateQuestions_UsesContext(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"mitochondria are organelles": {1, 0},
		"cells":                       {0.9, 0.1},
	}}
	generator := &fakeGenerator{response: validQuestionsJSON}
	svc, id, err := newTestService(embedder, generator, "mitochondria are organelles")
	require.NoError(t, err)

	result, err := svc.GenerateQuestions(context.Background(), QuestionRequest{
		Topic:        "cells",
		CollectionID: id,
	})
	require.NoError(t, err)

	assert.True(t, result.ContextUsed)
	assert.Equal(t, 1, result.ContextChunksUsed)

	require.Len(t, generator.lastMessages, 2)
	assert.Contains(t, generator.lastMessages[0].Content, "Context 1:\nmitochondria are organelles")
}

func TestGenerateQuestions_NoContextStatement(t *testing.T) {
	generator := &fakeGenerator{response: validQuestionsJSON}
	svc, _, err := newTestService(&fakeEmbedder{}, generator)
	require.NoError(t, err)

	_, err = svc.GenerateQuestions(context.Background(), QuestionRequest{Topic: "topic"})
	require.NoError(t, err)

	assert.Contains(t, generator.lastMessages[0].Content, "No source context is available")
}

func TestDifficultyPhrase(t *testing.T) {
	assert.Equal(t, difficultyPhrases["easy"], difficultyPhrase("easy"))
	assert.Equal(t, difficultyPhrases["hard"], difficultyPhrase("hard"))
	// Unrecognized difficulties default to medium.
	assert.Equal(t, difficultyPhrases["medium"], difficultyPhrase("impossible"))
	assert.Equal(t, difficultyPhrases["medium"], difficultyPhrase(""))
}

func TestQuestionTypePhrase(t *testing.T) {
	assert.Equal(t, "factual recall", questionTypePhrase("factual"))
	assert.Equal(t, "synthesizing multiple ideas", questionTypePhrase("synthesis"))
	// Unrecognized types pass through verbatim.
	assert.Equal(t, "rhetorical", questionTypePhrase("rhetorical"))
}

func TestParseQuestions_CodeFence(t *testing.T) {
	fenced := "```json\n" + validQuestionsJSON + "\n```"
	questions, err := parseQuestions(fenced)
	require.NoError(t, err)
	assert.Len(t, questions, 2)
}

func TestParseQuestions_EmptyArray(t *testing.T) {
	questions, err := parseQuestions("[]")
	require.NoError(t, err)
	assert.Empty(t, questions)
}
