package http

import "github.com/fyrsmithlabs/ragd/internal/registry"

// UploadResponse is the response body for POST /api/upload.
type UploadResponse struct {
	CollectionID string `json:"collection_id"`
	Filename     string `json:"filename"`
	ChunksCount  int    `json:"chunks_count"`
	Message      string `json:"message"`
}

// ChatRequest is the request body for POST /api/chat.
type ChatRequest struct {
	DeveloperMessage string `json:"developer_message"`
	UserMessage      string `json:"user_message"`
	Model            string `json:"model"`
	CollectionID     string `json:"collection_id"`
}

// QuestionsRequest is the request body for POST /api/questions.
type QuestionsRequest struct {
	Topic         string   `json:"topic"`
	CollectionID  string   `json:"collection_id"`
	QuestionCount int      `json:"question_count"`
	Difficulty    string   `json:"difficulty"`
	QuestionTypes []string `json:"question_types"`
	Model         string   `json:"model"`
}

// CollectionsResponse is the response body for GET /api/collections.
type CollectionsResponse struct {
	Collections []registry.CollectionInfo `json:"collections"`
}

// DeleteResponse is the response body for DELETE /api/collections/:id.
type DeleteResponse struct {
	Message string `json:"message"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}
