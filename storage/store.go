package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	openai "github.com/sashabaranov/go-openai"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"videoRecipe/config"
	"videoRecipe/core"
)

// RecipeStore indexes the fused steps of analyzed videos for semantic search.
type RecipeStore interface {
	Upsert(jobID string, timeline core.IntegratedTimeline) int
	Search(jobID string, query string, topK int) []core.StepHit
}

// GlobalStore is the process-wide store, set by InitRecipeStore.
var GlobalStore RecipeStore

// InitRecipeStore selects a backend via the STORE env (memory, pgvector,
// milvus). Backends that need an API key or a reachable database fall back to
// the in-memory store with a warning instead of failing startup.
func InitRecipeStore() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Printf("[store] config load failed (%v), using memory store", err)
		GlobalStore = NewMemoryRecipeStore()
		return nil
	}

	kind := strings.ToLower(strings.TrimSpace(os.Getenv("STORE")))
	switch kind {
	case "milvus":
		if !cfg.HasValidAPI() {
			config.PrintConfigInstructions()
			log.Printf("[store] API key required for Milvus embeddings, falling back to memory store")
			break
		}
		s, err := newMilvusRecipeStore()
		if err != nil {
			log.Printf("[store] Milvus init failed (%v), falling back to memory store", err)
			break
		}
		GlobalStore = s
		return nil
	case "pgvector":
		if !cfg.HasValidAPI() {
			config.PrintConfigInstructions()
			log.Printf("[store] API key required for pgvector embeddings, falling back to memory store")
			break
		}
		s, err := newPgRecipeStore(cfg)
		if err != nil {
			log.Printf("[store] pgvector init failed (%v), falling back to memory store", err)
			break
		}
		GlobalStore = s
		return nil
	}
	GlobalStore = NewMemoryRecipeStore()
	return nil
}

// stepText renders a fused step as the text that gets embedded and searched.
func stepText(step core.FusedStep) string {
	parts := []string{step.Description}
	if len(step.Ingredients) > 0 {
		parts = append(parts, strings.Join(step.Ingredients, " "))
	}
	if len(step.Tools) > 0 {
		parts = append(parts, strings.Join(step.Tools, " "))
	}
	return strings.ToLower(strings.Join(parts, " "))
}

// ---------------- Memory implementation (default and fallback) ----------------

type stepDoc struct {
	step  core.FusedStep
	embed map[string]float64 // term -> weight
}

// MemoryRecipeStore keeps term-frequency vectors in process memory. No
// external services, usable in tests and keyless runs.
type MemoryRecipeStore struct {
	mu   sync.RWMutex
	docs map[string][]stepDoc // jobID -> steps
}

func NewMemoryRecipeStore() *MemoryRecipeStore {
	return &MemoryRecipeStore{docs: map[string][]stepDoc{}}
}

func (s *MemoryRecipeStore) Upsert(jobID string, timeline core.IntegratedTimeline) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs := make([]stepDoc, 0, len(timeline.FusedSteps))
	for _, step := range timeline.FusedSteps {
		docs = append(docs, stepDoc{step: step, embed: embedTerms(stepText(step))})
	}
	s.docs[jobID] = docs
	return len(docs)
}

func (s *MemoryRecipeStore) Search(jobID string, query string, topK int) []core.StepHit {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := s.docs[jobID]
	qv := embedTerms(strings.ToLower(query))

	type scored struct {
		i     int
		score float64
	}
	scores := make([]scored, 0, len(docs))
	for i, d := range docs {
		scores = append(scores, scored{i, cosine(qv, d.embed)})
	}
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].score != scores[j].score {
			return scores[i].score > scores[j].score
		}
		return scores[i].i < scores[j].i
	})
	if topK <= 0 || topK > len(scores) {
		topK = min(len(scores), 5)
	}
	hits := make([]core.StepHit, 0, topK)
	for _, sc := range scores[:topK] {
		hits = append(hits, toHit(docs[sc.i].step, sc.score))
	}
	return hits
}

func toHit(step core.FusedStep, score float64) core.StepHit {
	return core.StepHit{
		Score:       score,
		StepNumber:  step.StepNumber,
		StartTime:   step.StartTime,
		EndTime:     step.EndTime,
		Description: step.Description,
		Ingredients: strings.Join(step.Ingredients, ", "),
	}
}

func embedTerms(text string) map[string]float64 {
	m := map[string]float64{}
	for _, t := range strings.Fields(text) {
		m[t] += 1
	}
	var sum float64
	for _, v := range m {
		sum += v * v
	}
	if sum == 0 {
		return m
	}
	norm := math.Sqrt(sum)
	for k, v := range m {
		m[k] = v / norm
	}
	return m
}

func cosine(a, b map[string]float64) float64 {
	var dot float64
	for k, va := range a {
		if vb, ok := b[k]; ok {
			dot += va * vb
		}
	}
	return dot
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// ---------------- embeddings (shared by the vector backends) ----------------

func openaiClient() *openai.Client {
	cfg, err := config.LoadConfig()
	if err != nil {
		return openai.NewClient(os.Getenv("API_KEY"))
	}
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return openai.NewClientWithConfig(clientConfig)
}

func embedText(cli *openai.Client, text string) ([]float32, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %v", err)
	}
	resp, err := cli.CreateEmbeddings(context.Background(), openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(cfg.EmbeddingModel),
		Input: []string{text},
	})
	if err != nil {
		return nil, fmt.Errorf("embedding API failed: %v", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no embeddings returned")
	}
	return resp.Data[0].Embedding, nil
}

// ---------------- pgvector implementation ----------------

// PgRecipeStore persists fused steps in Postgres with pgvector embeddings.
type PgRecipeStore struct {
	conn *pgx.Conn
	oa   *openai.Client
}

func newPgRecipeStore(cfg *config.Config) (*PgRecipeStore, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		dbURL = cfg.PostgresURL
	}
	ctx := context.Background()
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s := &PgRecipeStore{conn: conn, oa: openaiClient()}
	if err := s.ensureSchema(); err != nil {
		conn.Close(ctx)
		return nil, err
	}
	return s, nil
}

func (s *PgRecipeStore) ensureSchema() error {
	ctx := context.Background()
	if _, err := s.conn.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector;"); err != nil {
		return fmt.Errorf("create vector extension: %w", err)
	}
	if _, err := s.conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS recipe_steps (
			id SERIAL PRIMARY KEY,
			job_id VARCHAR(255) NOT NULL,
			step_number INT NOT NULL,
			start_time FLOAT NOT NULL,
			end_time FLOAT NOT NULL,
			description TEXT NOT NULL,
			ingredients TEXT,
			embedding vector(1536),
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(job_id, step_number)
		);
	`); err != nil {
		return fmt.Errorf("create recipe_steps table: %w", err)
	}
	if _, err := s.conn.Exec(ctx,
		"CREATE INDEX IF NOT EXISTS idx_recipe_steps_job_id ON recipe_steps(job_id);"); err != nil {
		log.Printf("[store] create job_id index failed: %v", err)
	}
	if _, err := s.conn.Exec(ctx, `
		CREATE INDEX IF NOT EXISTS idx_recipe_steps_embedding
		ON recipe_steps USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100);
	`); err != nil {
		log.Printf("[store] create vector index failed: %v", err)
	}
	return nil
}

func (s *PgRecipeStore) Upsert(jobID string, timeline core.IntegratedTimeline) int {
	if len(timeline.FusedSteps) == 0 {
		return 0
	}
	ctx := context.Background()
	count := 0
	for _, step := range timeline.FusedSteps {
		embedding, err := embedText(s.oa, stepText(step))
		if err != nil {
			continue
		}
		_, err = s.conn.Exec(ctx, `
			INSERT INTO recipe_steps (job_id, step_number, start_time, end_time, description, ingredients, embedding)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (job_id, step_number)
			DO UPDATE SET
				start_time = EXCLUDED.start_time,
				end_time = EXCLUDED.end_time,
				description = EXCLUDED.description,
				ingredients = EXCLUDED.ingredients,
				embedding = EXCLUDED.embedding
		`, jobID, step.StepNumber, step.StartTime, step.EndTime,
			step.Description, strings.Join(step.Ingredients, ", "), pgvector.NewVector(embedding))
		if err != nil {
			continue
		}
		count++
	}
	return count
}

func (s *PgRecipeStore) Search(jobID string, query string, topK int) []core.StepHit {
	if topK <= 0 {
		topK = 5
	}
	embedding, err := embedText(s.oa, strings.ToLower(query))
	if err != nil {
		return nil
	}
	vec := pgvector.NewVector(embedding)
	rows, err := s.conn.Query(context.Background(), `
		SELECT step_number, start_time, end_time, description, ingredients,
		       1 - (embedding <=> $1) as similarity
		FROM recipe_steps
		WHERE job_id = $2
		ORDER BY embedding <=> $1
		LIMIT $3
	`, vec, jobID, topK)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var hits []core.StepHit
	for rows.Next() {
		var hit core.StepHit
		if err := rows.Scan(&hit.StepNumber, &hit.StartTime, &hit.EndTime,
			&hit.Description, &hit.Ingredients, &hit.Score); err != nil {
			continue
		}
		hits = append(hits, hit)
	}
	return hits
}

// ---------------- Milvus implementation ----------------

// MilvusRecipeStore keeps fused step embeddings in a Milvus collection.
type MilvusRecipeStore struct {
	mc   client.Client
	coll string
	dim  int
	oa   *openai.Client
}

func newMilvusRecipeStore() (*MilvusRecipeStore, error) {
	addr := os.Getenv("MILVUS_ADDR")
	if addr == "" {
		addr = "localhost:19530"
	}
	coll := os.Getenv("MILVUS_COLLECTION")
	if coll == "" {
		coll = "recipe_steps"
	}
	mc, err := client.NewClient(context.Background(), client.Config{
		Address:  addr,
		Username: os.Getenv("MILVUS_USERNAME"),
		Password: os.Getenv("MILVUS_PASSWORD"),
		APIKey:   os.Getenv("MILVUS_API_KEY"),
	})
	if err != nil {
		return nil, fmt.Errorf("connect milvus: %w", err)
	}
	s := &MilvusRecipeStore{mc: mc, coll: coll, dim: 1536, oa: openaiClient()}
	if err := s.ensureSchemaAndIndex(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *MilvusRecipeStore) ensureSchemaAndIndex() error {
	ctx := context.Background()
	has, err := s.mc.HasCollection(ctx, s.coll)
	if err != nil {
		return err
	}
	if !has {
		schema := entity.NewSchema()
		schema.WithField(entity.NewField().WithName("id").WithIsAutoID(true).WithIsPrimaryKey(true).WithDataType(entity.FieldTypeInt64))
		schema.WithField(entity.NewField().WithName("job_id").WithDataType(entity.FieldTypeVarChar).WithMaxLength(128))
		schema.WithField(entity.NewField().WithName("step_number").WithDataType(entity.FieldTypeInt64))
		schema.WithField(entity.NewField().WithName("start_time").WithDataType(entity.FieldTypeDouble))
		schema.WithField(entity.NewField().WithName("end_time").WithDataType(entity.FieldTypeDouble))
		schema.WithField(entity.NewField().WithName("description").WithDataType(entity.FieldTypeVarChar).WithMaxLength(4096))
		schema.WithField(entity.NewField().WithName("ingredients").WithDataType(entity.FieldTypeVarChar).WithMaxLength(2048))
		schema.WithField(entity.NewField().WithName("vector").WithDataType(entity.FieldTypeFloatVector).WithDim(int64(s.dim)))
		if err := s.mc.CreateCollection(ctx, schema, int32(2)); err != nil {
			return fmt.Errorf("create collection: %w", err)
		}
	}
	idx, err := entity.NewIndexHNSW(entity.COSINE, 8, 200)
	if err != nil {
		return fmt.Errorf("new hnsw index: %w", err)
	}
	if err := s.mc.CreateIndex(ctx, s.coll, "vector", idx, false, client.WithIndexName("idx_vector")); err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	if err := s.mc.LoadCollection(ctx, s.coll, false); err != nil {
		return fmt.Errorf("load collection: %w", err)
	}
	return nil
}

func (s *MilvusRecipeStore) Upsert(jobID string, timeline core.IntegratedTimeline) int {
	steps := timeline.FusedSteps
	if len(steps) == 0 {
		return 0
	}
	jobIDs := make([]string, 0, len(steps))
	numbers := make([]int64, 0, len(steps))
	starts := make([]float64, 0, len(steps))
	ends := make([]float64, 0, len(steps))
	descriptions := make([]string, 0, len(steps))
	ingredients := make([]string, 0, len(steps))
	vectors := make([][]float32, 0, len(steps))

	for _, step := range steps {
		v, err := embedText(s.oa, stepText(step))
		if err != nil {
			continue
		}
		jobIDs = append(jobIDs, jobID)
		numbers = append(numbers, int64(step.StepNumber))
		starts = append(starts, step.StartTime)
		ends = append(ends, step.EndTime)
		descriptions = append(descriptions, step.Description)
		ingredients = append(ingredients, strings.Join(step.Ingredients, ", "))
		vectors = append(vectors, v)
	}
	if len(vectors) == 0 {
		return 0
	}
	_, err := s.mc.Insert(context.Background(), s.coll, "",
		entity.NewColumnVarChar("job_id", jobIDs),
		entity.NewColumnInt64("step_number", numbers),
		entity.NewColumnDouble("start_time", starts),
		entity.NewColumnDouble("end_time", ends),
		entity.NewColumnVarChar("description", descriptions),
		entity.NewColumnVarChar("ingredients", ingredients),
		entity.NewColumnFloatVector("vector", s.dim, vectors),
	)
	if err != nil {
		return 0
	}
	return len(vectors)
}

func (s *MilvusRecipeStore) Search(jobID string, query string, topK int) []core.StepHit {
	v, err := embedText(s.oa, strings.ToLower(query))
	if err != nil {
		return nil
	}
	if topK <= 0 {
		topK = 5
	}
	sp, _ := entity.NewIndexHNSWSearchParam(74)
	filter := fmt.Sprintf("job_id == %q", jobID)
	res, err := s.mc.Search(context.Background(), s.coll, []string{}, filter,
		[]string{"step_number", "start_time", "end_time", "description", "ingredients"},
		[]entity.Vector{entity.FloatVector(v)}, "vector", entity.COSINE, topK, sp)
	if err != nil {
		return nil
	}

	var hits []core.StepHit
	for _, r := range res {
		cols := map[string]entity.Column{}
		for _, c := range r.Fields {
			cols[c.Name()] = c
		}
		for i := 0; i < r.ResultCount; i++ {
			var hit core.StepHit
			hit.Score = float64(r.Scores[i])
			if c, ok := cols["step_number"].(*entity.ColumnInt64); ok && i < len(c.Data()) {
				hit.StepNumber = int(c.Data()[i])
			}
			if c, ok := cols["start_time"].(*entity.ColumnDouble); ok && i < len(c.Data()) {
				hit.StartTime = c.Data()[i]
			}
			if c, ok := cols["end_time"].(*entity.ColumnDouble); ok && i < len(c.Data()) {
				hit.EndTime = c.Data()[i]
			}
			if c, ok := cols["description"].(*entity.ColumnVarChar); ok && i < len(c.Data()) {
				hit.Description = c.Data()[i]
			}
			if c, ok := cols["ingredients"].(*entity.ColumnVarChar); ok && i < len(c.Data()) {
				hit.Ingredients = c.Data()[i]
			}
			hits = append(hits, hit)
		}
	}
	return hits
}

// ---------------- HTTP handlers ----------------

type StoreRequest struct {
	JobID string `json:"job_id"`
}

type StoreResponse struct {
	JobID  string `json:"job_id"`
	Count  int    `json:"count"`
	Status string `json:"status,omitempty"`
}

type QueryRequest struct {
	JobID string `json:"job_id"`
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

type QueryResponse struct {
	JobID  string         `json:"job_id"`
	Query  string         `json:"query"`
	Hits   []core.StepHit `json:"hits"`
	Answer string         `json:"answer"`
}

// StoreHandler indexes the saved timeline of a job into the recipe store.
func StoreHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		core.WriteJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	var req StoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.JobID == "" {
		core.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "job_id required"})
		return
	}

	var timeline core.IntegratedTimeline
	b, err := os.ReadFile(filepath.Join(core.DataRoot(), req.JobID, "timeline.json"))
	if err != nil {
		core.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "timeline.json not found for job"})
		return
	}
	if err := json.Unmarshal(b, &timeline); err != nil {
		core.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid timeline.json"})
		return
	}

	if GlobalStore == nil {
		if err := InitRecipeStore(); err != nil || GlobalStore == nil {
			core.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": "recipe store unavailable"})
			return
		}
	}
	cnt := GlobalStore.Upsert(req.JobID, timeline)
	core.WriteJSON(w, http.StatusOK, StoreResponse{JobID: req.JobID, Count: cnt})
}

// QueryHandler searches a job's indexed steps and synthesizes an answer.
func QueryHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		core.WriteJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.JobID == "" || strings.TrimSpace(req.Query) == "" {
		core.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "job_id and query required"})
		return
	}
	if GlobalStore == nil {
		if err := InitRecipeStore(); err != nil || GlobalStore == nil {
			core.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": "recipe store unavailable"})
			return
		}
	}
	hits := GlobalStore.Search(req.JobID, req.Query, req.TopK)
	ans := synthesizeAnswer(req.Query, hits)
	core.WriteJSON(w, http.StatusOK, QueryResponse{JobID: req.JobID, Query: req.Query, Hits: hits, Answer: ans})
}

// synthesizeAnswer builds an answer about the recipe from the retrieved steps,
// using the chat model when configured and a plain rendering otherwise.
func synthesizeAnswer(question string, hits []core.StepHit) string {
	if len(hits) == 0 {
		return "No matching steps found."
	}
	cfg, err := config.LoadConfig()
	if err != nil || !cfg.HasValidAPI() {
		return synthesizeAnswerSimple(hits)
	}

	contextParts := make([]string, 0, len(hits))
	for i, hit := range hits {
		contextParts = append(contextParts, fmt.Sprintf("Step %d [%s]: %s (ingredients: %s)",
			i+1, core.FormatTime(hit.StartTime), hit.Description, hit.Ingredients))
	}
	prompt := fmt.Sprintf(`You are a cooking assistant. Based on the following steps retrieved from an analyzed cooking video, answer the user's question. Cite the timestamps.

Retrieved steps:
%s

Question: %s`, strings.Join(contextParts, "\n"), question)

	resp, err := openaiClient().CreateChatCompletion(context.Background(), openai.ChatCompletionRequest{
		Model: cfg.ChatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   800,
		Temperature: 0.3,
	})
	if err != nil {
		log.Printf("[store] answer synthesis failed (%v), using plain rendering", err)
		return synthesizeAnswerSimple(hits)
	}
	if len(resp.Choices) == 0 {
		return synthesizeAnswerSimple(hits)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content)
}

func synthesizeAnswerSimple(hits []core.StepHit) string {
	parts := make([]string, 0, len(hits))
	for _, h := range hits {
		parts = append(parts, fmt.Sprintf("[%s] %s", core.FormatTime(h.StartTime), h.Description))
	}
	return "Relevant steps: " + strings.Join(parts, "; ")
}
