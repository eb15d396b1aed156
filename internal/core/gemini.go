package core

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/askroom/askroom-api/internal/config"
)

const (
	transcriptionPrompt = "Transcreva o áudio para português do Brasil. " +
		"Seja preciso e natural na transcrição. " +
		"Mantenha a pontuação adequada e divida o texto em parágrafos quando for apropriado."

	// Passages are joined with this before being embedded into the grounded
	// answer prompt.
	contextSeparator = "\n\n"

	groundedAnswerPrompt = `Com base no texto fornecido abaixo como contexto, responda a pergunta de forma clara e precisa em português do Brasil.

CONTEXTO:
%s

PERGUNTA:
%s

INSTRUÇÕES:
- Use apenas informações contidas no contexto enviado;
- Se a resposta não for encontrada no contexto, apenas responda que não possui informações suficientes para responder;
- Seja objetivo;
- Mantenha um tom educativo e profissional;
- Cite trechos relevantes do contexto se apropriado;
- Se for citar o contexto, utilize o termo "conteúdo da aula";`

	generalAnswerPrompt = `Responda a seguinte pergunta de forma educativa e profissional em português do Brasil.

PERGUNTA:
%s

INSTRUÇÕES:
- Forneça uma resposta informativa e útil
- Se for uma pergunta muito específica sobre um conteúdo que você não tem acesso, explique isso educadamente
- Mantenha um tom educativo e profissional
- Se possível, dê dicas gerais ou direcionamentos úteis sobre o tópico
- Sugira que o usuário faça upload de conteúdo (áudio/vídeo da aula) para respostas mais específicas`
)

// AIGateway is the contract for the external generative-AI provider. All
// four operations are single request/response calls with no local state.
type AIGateway interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
	Embed(ctx context.Context, text string) ([]float32, error)
	AnswerWithContext(ctx context.Context, question string, transcriptions []string) (string, error)
	AnswerGeneral(ctx context.Context, question string) (string, error)
}

// GeminiService implements AIGateway over the Gemini SDK.
type GeminiService struct {
	client *genai.Client
}

func NewGeminiService() *GeminiService {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(config.AppConfig.GeminiAPIKey))
	if err != nil {
		log.Fatalf("Failed to create GenAI client: %v", err)
	}

	return &GeminiService{
		client: client,
	}
}

func (s *GeminiService) Close() {
	if s.client != nil {
		if err := s.client.Close(); err != nil {
			log.Printf("Error closing GenAI client: %v", err)
		}
	}
}

func (s *GeminiService) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	model := s.client.GenerativeModel(config.AppConfig.GeminiModel)

	resp, err := model.GenerateContent(ctx,
		genai.Text(transcriptionPrompt),
		genai.Blob{MIMEType: mimeType, Data: audio},
	)
	if err != nil {
		return "", &ProviderError{Op: "transcribe", Err: err}
	}

	text := responseText(resp)
	if text == "" {
		return "", &ProviderError{Op: "transcribe", Err: fmt.Errorf("empty transcription response")}
	}
	return text, nil
}

func (s *GeminiService) Embed(ctx context.Context, text string) ([]float32, error) {
	em := s.client.EmbeddingModel(config.AppConfig.EmbeddingModel)
	em.TaskType = genai.TaskTypeRetrievalDocument

	res, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, &ProviderError{Op: "embed", Err: err}
	}

	if res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, &ProviderError{Op: "embed", Err: fmt.Errorf("no embedding data received")}
	}
	return res.Embedding.Values, nil
}

func (s *GeminiService) AnswerWithContext(ctx context.Context, question string, transcriptions []string) (string, error) {
	model := s.client.GenerativeModel(config.AppConfig.GeminiModel)

	passages := strings.Join(transcriptions, contextSeparator)
	prompt := fmt.Sprintf(groundedAnswerPrompt, passages, question)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", &ProviderError{Op: "answer", Err: err}
	}

	text := responseText(resp)
	if text == "" {
		return "", &ProviderError{Op: "answer", Err: fmt.Errorf("empty answer response")}
	}
	return text, nil
}

func (s *GeminiService) AnswerGeneral(ctx context.Context, question string) (string, error) {
	model := s.client.GenerativeModel(config.AppConfig.GeminiModel)

	prompt := fmt.Sprintf(generalAnswerPrompt, question)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", &ProviderError{Op: "general answer", Err: err}
	}

	text := responseText(resp)
	if text == "" {
		return "", &ProviderError{Op: "general answer", Err: fmt.Errorf("empty answer response")}
	}
	return text, nil
}

// responseText joins the text parts of the first candidate, skipping
// anything that is not text.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		} else {
			log.Printf("Gemini response part was not text: %T", part)
		}
	}
	return strings.TrimSpace(sb.String())
}
