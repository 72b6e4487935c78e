package api

import (
	"encoding/json"
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/microres/internal/models"
)

// EvaluationDocument is the wire layout of an evaluation result.
type EvaluationDocument struct {
	ID               string            `json:"id"`
	TestID           string            `json:"test_id"`
	Strategy         string            `json:"strategy"`
	ResilienceIndex  float64           `json:"resilience_index"`
	PerformanceScore float64           `json:"performance_score"`
	BusinessScore    float64           `json:"business_score"`
	Ranking          models.RankedList `json:"ranking"`
	DurationMs       float64           `json:"duration_ms"`
	CreatedAt        time.Time         `json:"created_at"`
}

type listEvaluationsDocument struct {
	Evaluations []EvaluationDocument `json:"evaluations"`
}

// FromProtoCase decodes an Evaluate request into a case description.
func FromProtoCase(req *structpb.Struct) (*models.CaseFile, error) {
	if req == nil {
		return nil, fmt.Errorf("request is nil")
	}
	var c models.CaseFile
	if err := decodeStruct(req, &c); err != nil {
		return nil, fmt.Errorf("decode case: %w", err)
	}
	if err := c.Check(); err != nil {
		return nil, err
	}
	return &c, nil
}

// ToProtoCase encodes a case description as an Evaluate request.
func ToProtoCase(c *models.CaseFile) (*structpb.Struct, error) {
	if c == nil {
		return nil, fmt.Errorf("case is nil")
	}
	return encodeStruct(c)
}

// ToProtoEvaluation converts a domain result into its wire document.
func ToProtoEvaluation(res models.EvaluationResult) (*structpb.Struct, error) {
	return encodeStruct(NewEvaluationDocument(res))
}

// FromProtoEvaluation decodes an Evaluate response.
func FromProtoEvaluation(s *structpb.Struct) (EvaluationDocument, error) {
	var doc EvaluationDocument
	if err := decodeStruct(s, &doc); err != nil {
		return EvaluationDocument{}, fmt.Errorf("decode evaluation: %w", err)
	}
	return doc, nil
}

// FromProtoListRequest decodes a ListEvaluations request.
func FromProtoListRequest(req *structpb.Struct) (models.ListEvaluationsRequest, error) {
	if req == nil {
		return models.ListEvaluationsRequest{}, fmt.Errorf("request is nil")
	}
	var out models.ListEvaluationsRequest
	if err := decodeStruct(req, &out); err != nil {
		return models.ListEvaluationsRequest{}, fmt.Errorf("decode list request: %w", err)
	}
	if out.Limit < 0 {
		return models.ListEvaluationsRequest{}, fmt.Errorf("limit must not be negative")
	}
	return out, nil
}

// ToProtoListRequest encodes a ListEvaluations request.
func ToProtoListRequest(req models.ListEvaluationsRequest) (*structpb.Struct, error) {
	return encodeStruct(req)
}

// ToProtoListResponse converts stored results into a ListEvaluations response.
func ToProtoListResponse(results []models.EvaluationResult) (*structpb.Struct, error) {
	doc := listEvaluationsDocument{Evaluations: make([]EvaluationDocument, 0, len(results))}
	for _, r := range results {
		doc.Evaluations = append(doc.Evaluations, NewEvaluationDocument(r))
	}
	return encodeStruct(doc)
}

// FromProtoListResponse decodes a ListEvaluations response.
func FromProtoListResponse(s *structpb.Struct) ([]EvaluationDocument, error) {
	var doc listEvaluationsDocument
	if err := decodeStruct(s, &doc); err != nil {
		return nil, fmt.Errorf("decode evaluations: %w", err)
	}
	return doc.Evaluations, nil
}

// NewEvaluationDocument flattens a result into its wire layout.
func NewEvaluationDocument(res models.EvaluationResult) EvaluationDocument {
	return EvaluationDocument{
		ID:               res.ID,
		TestID:           res.TestID,
		Strategy:         res.Strategy,
		ResilienceIndex:  res.Breakdown.Index,
		PerformanceScore: res.Breakdown.Performance,
		BusinessScore:    res.Breakdown.Business,
		Ranking:          res.Ranking,
		DurationMs:       float64(res.Duration) / float64(time.Millisecond),
		CreatedAt:        res.CreatedAt,
	}
}

func encodeStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeStruct(s *structpb.Struct, v any) error {
	data, err := protojson.Marshal(s)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
