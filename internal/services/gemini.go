package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"

	"mcq-mastery-backend/internal/models"
)

// inlineLimit is the largest document sent to the model as inline data. Bigger PDFs
// go through local text extraction instead.
const inlineLimit = 18 << 20

type generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

type FactSource struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// SourceModelSuggested marks sources the model wrote itself. The SDK exposes no
// search tool, so these links are unchecked.
const SourceModelSuggested = "model-suggested"

type FactSheet struct {
	Summary      string       `json:"summary"`
	Sources      []FactSource `json:"sources"`
	SourceOrigin string       `json:"sourceOrigin"`
}

type GeminiService struct {
	client    *genai.Client
	extractor generator
	analyzer  generator
	explainer generator
	facts     generator
	quick     generator
	files     *FileExtractService
	rateChan  chan struct{} // Token bucket
}

var questionSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"question":           {Type: genai.TypeString},
		"options":            {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		"correctAnswerIndex": {Type: genai.TypeInteger},
		"explanation":        {Type: genai.TypeString},
		"category":           {Type: genai.TypeString},
	},
	Required: []string{"question", "options", "correctAnswerIndex", "explanation"},
}

var factSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"summary": {Type: genai.TypeString},
		"sources": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"title": {Type: genai.TypeString},
					"uri":   {Type: genai.TypeString},
				},
				Required: []string{"uri"},
			},
		},
	},
	Required: []string{"summary"},
}

func NewGeminiService(apiKey, modelName, fastModelName string, concurrentReqs int, files *FileExtractService) (*GeminiService, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	extractor := client.GenerativeModel(modelName)
	extractor.SetTemperature(0.2)
	extractor.ResponseMIMEType = "application/json"
	extractor.ResponseSchema = &genai.Schema{Type: genai.TypeArray, Items: questionSchema}

	analyzer := client.GenerativeModel(modelName)
	analyzer.SetTemperature(0.2)
	analyzer.ResponseMIMEType = "application/json"
	analyzer.ResponseSchema = questionSchema

	explainer := client.GenerativeModel(modelName)
	explainer.SetTemperature(0.4)
	explainer.SetTopP(0.95)

	facts := client.GenerativeModel(fastModelName)
	facts.SetTemperature(0.3)
	facts.ResponseMIMEType = "application/json"
	facts.ResponseSchema = factSchema

	quick := client.GenerativeModel(fastModelName)
	quick.SetTemperature(0.3)

	s := newGeminiService(extractor, analyzer, explainer, facts, quick, files, concurrentReqs)
	s.client = client
	return s, nil
}

func newGeminiService(extractor, analyzer, explainer, facts, quick generator, files *FileExtractService, concurrentReqs int) *GeminiService {
	if concurrentReqs < 1 {
		concurrentReqs = 1
	}
	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &GeminiService{
		extractor: extractor,
		analyzer:  analyzer,
		explainer: explainer,
		facts:     facts,
		quick:     quick,
		files:     files,
		rateChan:  rateChan,
	}
}

func (s *GeminiService) Close() {
	if s.client != nil {
		s.client.Close()
	}
}

// acquireRate blocks until a rate slot is available
func (s *GeminiService) acquireRate(ctx context.Context) error {
	select {
	case <-s.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Minute):
		return &RateLimitError{Message: "timeout waiting for Gemini rate slot"}
	}
}

func (s *GeminiService) releaseRate() {
	s.rateChan <- struct{}{}
}

func (s *GeminiService) generate(ctx context.Context, g generator, parts ...genai.Part) (string, error) {
	if err := s.acquireRate(ctx); err != nil {
		return "", err
	}
	defer s.releaseRate()

	resp, err := g.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}

	for i, cand := range resp.Candidates {
		if cand.FinishReason != genai.FinishReasonStop && cand.FinishReason != genai.FinishReasonUnspecified {
			log.Warn().Int("candidate", i).Stringer("finish_reason", cand.FinishReason).Msg("Gemini stopped early")
		}
	}
	return extractText(resp), nil
}

const extractPrompt = `Extract all Multiple Choice Questions (MCQs) from this document. Return them as a JSON array. Each question must include: 'question', 'options' (array of strings), 'correctAnswerIndex' (0-indexed) and a brief 'explanation'. Add a short 'category' when the topic is clear.

FORMATTING RULES:
1. If a question involves matching lists (e.g. 'Match List-I with List-II'), separate the items in the 'question' text with newlines so they read as a vertical list.
2. Preserve the exact number of options found in the document (could be 4, 5, or more).
3. Keep the 'question' text clean, using newlines where logical.`

// ExtractFromDocument returns the valid questions found in a document. Records that fail
// validation are dropped; a malformed or empty response yields no questions and no error.
// Only transport failures are returned as errors.
func (s *GeminiService) ExtractFromDocument(ctx context.Context, data []byte, mimeType, filename string) ([]models.Question, error) {
	kind, ok := DetectKind(mimeType, filename)
	if !ok {
		return nil, &ValidationError{Fields: map[string]string{"file": "Unsupported file type"}}
	}

	var parts []genai.Part
	switch {
	case kind == KindImage:
		parts = []genai.Part{genai.Blob{MIMEType: mimeType, Data: data}, genai.Text(extractPrompt)}
	case kind == KindPDF && len(data) <= inlineLimit:
		if _, err := s.files.PDFPageCount(data); err != nil {
			return nil, &ValidationError{Fields: map[string]string{"file": "File is not a readable PDF"}}
		}
		parts = []genai.Part{genai.Blob{MIMEType: "application/pdf", Data: data}, genai.Text(extractPrompt)}
	default:
		text, err := s.files.ExtractText(data, kind)
		if err != nil {
			log.Warn().Err(err).Str("kind", string(kind)).Msg("Local text extraction failed")
			return []models.Question{}, nil
		}
		parts = []genai.Part{genai.Text(extractPrompt + "\n\n---DOCUMENT START---\n" + text + "\n---DOCUMENT END---\n")}
	}

	raw, err := s.generate(ctx, s.extractor, parts...)
	if err != nil {
		return nil, err
	}
	return parseQuestions(raw), nil
}

const analyzePrompt = "Analyze this image containing a question. Extract the question, options, identify the correct answer, and provide an explanation. If there are lists or matching columns, use newlines to format them vertically. Return in JSON format."

// ExtractFromImage reads a single question from a photo. It returns nil when the model
// response is unusable.
func (s *GeminiService) ExtractFromImage(ctx context.Context, data []byte, mimeType string) (*models.Question, error) {
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	raw, err := s.generate(ctx, s.analyzer, genai.Blob{MIMEType: mimeType, Data: data}, genai.Text(analyzePrompt))
	if err != nil {
		return nil, err
	}

	var rq models.RawQuestion
	if err := json.Unmarshal([]byte(stripFences(raw)), &rq); err != nil {
		log.Warn().Err(err).Msg("Failed to parse image analysis response")
		return nil, nil
	}
	q, err := rq.ToQuestion()
	if err != nil {
		log.Warn().Err(err).Msg("Rejected analyzed question")
		return nil, nil
	}
	return &q, nil
}

func (s *GeminiService) SearchFacts(ctx context.Context, q models.Question) (*FactSheet, error) {
	prompt := fmt.Sprintf(`Summarize the facts related to this question: %q.
The options provided are: %s.
Provide a concise educational summary of the topic and confirm the correct facts. Suggest reference pages for further reading as sources with title and uri.`,
		q.Question, strings.Join(q.Options, ", "))

	raw, err := s.generate(ctx, s.facts, genai.Text(prompt))
	if err != nil {
		return nil, err
	}

	sheet := &FactSheet{}
	if err := json.Unmarshal([]byte(stripFences(raw)), sheet); err != nil {
		log.Warn().Err(err).Str("question_id", q.ID).Msg("Failed to parse fact search response")
		sheet = &FactSheet{}
	}

	sources := make([]FactSource, 0, len(sheet.Sources))
	for _, src := range sheet.Sources {
		src.URI = strings.TrimSpace(src.URI)
		if u, err := url.Parse(src.URI); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			continue
		}
		sources = append(sources, src)
	}
	sheet.Sources = sources
	sheet.SourceOrigin = SourceModelSuggested
	if strings.TrimSpace(sheet.Summary) == "" {
		sheet.Summary = "No additional facts found."
	}
	return sheet, nil
}

func (s *GeminiService) DeepExplain(ctx context.Context, q models.Question) (string, error) {
	prompt := fmt.Sprintf(`Provide a deep, logical breakdown of why the correct answer to this MCQ is correct and why the others are wrong.
Question: %s
Options: %s
Correct Index: %d`, q.Question, strings.Join(q.Options, ", "), q.CorrectAnswerIndex)

	text, err := s.generate(ctx, s.explainer, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	if text = strings.TrimSpace(text); text == "" {
		return "No explanation available.", nil
	}
	return text, nil
}

func (s *GeminiService) QuickExplain(ctx context.Context, concept string) (string, error) {
	text, err := s.generate(ctx, s.quick, genai.Text("Explain this concept briefly and clearly: "+concept))
	if err != nil {
		return "", err
	}
	if text = strings.TrimSpace(text); text == "" {
		return "No explanation available.", nil
	}
	return text, nil
}

// Helper functions

func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}

func stripFences(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	return strings.TrimSpace(raw)
}

// parseQuestions decodes a JSON array and keeps the records that decode and validate.
// A malformed record is dropped on its own.
func parseQuestions(raw string) []models.Question {
	raw = stripFences(raw)

	var records []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		// Try to extract JSON array
		start := strings.Index(raw, "[")
		end := strings.LastIndex(raw, "]")
		if start < 0 || end <= start || json.Unmarshal([]byte(raw[start:end+1]), &records) != nil {
			log.Warn().Err(err).Msg("Failed to parse extraction response")
			return []models.Question{}
		}
	}

	valid := make([]models.Question, 0, len(records))
	for i, rec := range records {
		var r models.RawQuestion
		if err := json.Unmarshal(rec, &r); err != nil {
			log.Debug().Err(err).Int("record", i).Msg("Skipped undecodable question record")
			continue
		}
		q, err := r.ToQuestion()
		if err != nil {
			log.Debug().Err(err).Int("record", i).Msg("Rejected extracted question")
			continue
		}
		valid = append(valid, q)
	}
	return valid
}
