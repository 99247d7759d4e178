package api

import (
	_ "embed"
	"fmt"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/gin-gonic/gin"
	"github.com/oapi-codegen/runtime"
)

//go:embed openapi.yaml
var openapiYAML []byte

// GetSwagger loads the embedded OpenAPI document
func GetSwagger() (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(openapiYAML)
	if err != nil {
		return nil, fmt.Errorf("error loading embedded OpenAPI document: %w", err)
	}
	return doc, nil
}

// ServerInterface represents all server handlers.
type ServerInterface interface {
	// (GET /health)
	GetHealth(c *gin.Context)
	// (GET /api/v1/navigation)
	GetNavigation(c *gin.Context)
	// (POST /api/v1/navigation/navigate)
	Navigate(c *gin.Context)
	// (POST /api/v1/navigation/back)
	NavigateBack(c *gin.Context)
	// (POST /api/v1/analysis)
	StartAnalysis(c *gin.Context)
	// (POST /api/v1/analysis/cancel)
	CancelAnalysis(c *gin.Context)
	// (POST /api/v1/triage)
	SubmitTriage(c *gin.Context)
	// (POST /api/v1/pharmacy)
	LookupPharmacy(c *gin.Context)
	// (POST /api/v1/transcribe)
	Transcribe(c *gin.Context)
	// (POST /api/v1/chat/resume)
	ResumeChatSession(c *gin.Context)
	// (GET /api/v1/chat/sessions)
	ListChatSessions(c *gin.Context)
	// (POST /api/v1/chat/sessions)
	CreateChatSession(c *gin.Context)
	// (GET /api/v1/chat/sessions/{id})
	GetChatSession(c *gin.Context, id string)
	// (DELETE /api/v1/chat/sessions/{id})
	DeleteChatSession(c *gin.Context, id string)
	// (POST /api/v1/chat/sessions/{id}/activate)
	ActivateChatSession(c *gin.Context, id string)
	// (POST /api/v1/chat/sessions/{id}/messages)
	SendChatMessage(c *gin.Context, id string)
	// (POST /api/v1/therapy/resume)
	ResumeTherapySession(c *gin.Context)
	// (GET /api/v1/therapy/sessions)
	ListTherapySessions(c *gin.Context)
	// (POST /api/v1/therapy/sessions)
	CreateTherapySession(c *gin.Context)
	// (GET /api/v1/therapy/sessions/{id})
	GetTherapySession(c *gin.Context, id string)
	// (DELETE /api/v1/therapy/sessions/{id})
	DeleteTherapySession(c *gin.Context, id string)
	// (POST /api/v1/therapy/sessions/{id}/activate)
	ActivateTherapySession(c *gin.Context, id string)
	// (POST /api/v1/therapy/sessions/{id}/messages)
	SendTherapyMessage(c *gin.Context, id string)
	// (GET /api/v1/records)
	ListRecords(c *gin.Context)
	// (GET /api/v1/records/{id})
	OpenRecord(c *gin.Context, id string)
	// (DELETE /api/v1/records/{id})
	DeleteRecord(c *gin.Context, id string)
	// (GET /api/v1/records/{id}/report)
	GetRecordReport(c *gin.Context, id string)
	// (GET /api/v1/records/{id}/image)
	GetRecordImage(c *gin.Context, id string)
	// (GET /api/v1/export/records)
	ExportRecords(c *gin.Context)
	// (GET /api/v1/profile)
	GetProfile(c *gin.Context)
	// (PUT /api/v1/profile)
	PutProfile(c *gin.Context)
	// (GET /api/v1/credentials)
	GetCredentials(c *gin.Context)
	// (PUT /api/v1/credentials)
	PutCredentials(c *gin.Context)
	// (DELETE /api/v1/credentials)
	DeleteCredentials(c *gin.Context)
}

// ServerInterfaceWrapper converts contexts to parameters.
type ServerInterfaceWrapper struct {
	Handler            ServerInterface
	HandlerMiddlewares []MiddlewareFunc
	ErrorHandler       func(*gin.Context, error, int)
}

type MiddlewareFunc func(c *gin.Context)

func (siw *ServerInterfaceWrapper) runMiddlewares(c *gin.Context) bool {
	for _, middleware := range siw.HandlerMiddlewares {
		middleware(c)
		if c.IsAborted() {
			return false
		}
	}
	return true
}

func (siw *ServerInterfaceWrapper) bindID(c *gin.Context) (string, bool) {
	var id string
	err := runtime.BindStyledParameterWithOptions("simple", "id", c.Param("id"), &id, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
	if err != nil {
		siw.ErrorHandler(c, fmt.Errorf("Invalid format for parameter id: %w", err), http.StatusBadRequest)
		return "", false
	}
	return id, true
}

// GetHealth operation middleware
func (siw *ServerInterfaceWrapper) GetHealth(c *gin.Context) {
	if !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.GetHealth(c)
}

// GetNavigation operation middleware
func (siw *ServerInterfaceWrapper) GetNavigation(c *gin.Context) {
	if !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.GetNavigation(c)
}

// Navigate operation middleware
func (siw *ServerInterfaceWrapper) Navigate(c *gin.Context) {
	if !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.Navigate(c)
}

// NavigateBack operation middleware
func (siw *ServerInterfaceWrapper) NavigateBack(c *gin.Context) {
	if !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.NavigateBack(c)
}

// StartAnalysis operation middleware
func (siw *ServerInterfaceWrapper) StartAnalysis(c *gin.Context) {
	if !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.StartAnalysis(c)
}

// CancelAnalysis operation middleware
func (siw *ServerInterfaceWrapper) CancelAnalysis(c *gin.Context) {
	if !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.CancelAnalysis(c)
}

// SubmitTriage operation middleware
func (siw *ServerInterfaceWrapper) SubmitTriage(c *gin.Context) {
	if !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.SubmitTriage(c)
}

// LookupPharmacy operation middleware
func (siw *ServerInterfaceWrapper) LookupPharmacy(c *gin.Context) {
	if !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.LookupPharmacy(c)
}

// Transcribe operation middleware
func (siw *ServerInterfaceWrapper) Transcribe(c *gin.Context) {
	if !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.Transcribe(c)
}

// ResumeChatSession operation middleware
func (siw *ServerInterfaceWrapper) ResumeChatSession(c *gin.Context) {
	if !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.ResumeChatSession(c)
}

// ListChatSessions operation middleware
func (siw *ServerInterfaceWrapper) ListChatSessions(c *gin.Context) {
	if !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.ListChatSessions(c)
}

// CreateChatSession operation middleware
func (siw *ServerInterfaceWrapper) CreateChatSession(c *gin.Context) {
	if !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.CreateChatSession(c)
}

// GetChatSession operation middleware
func (siw *ServerInterfaceWrapper) GetChatSession(c *gin.Context) {
	id, ok := siw.bindID(c)
	if !ok {
		return
	}
	if !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.GetChatSession(c, id)
}

// DeleteChatSession operation middleware
func (siw *ServerInterfaceWrapper) DeleteChatSession(c *gin.Context) {
	id, ok := siw.bindID(c)
	if !ok {
		return
	}
	if !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.DeleteChatSession(c, id)
}

// ActivateChatSession operation middleware
func (siw *ServerInterfaceWrapper) ActivateChatSession(c *gin.Context) {
	id, ok := siw.bindID(c)
	if !ok {
		return
	}
	if !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.ActivateChatSession(c, id)
}

// SendChatMessage operation middleware
func (siw *ServerInterfaceWrapper) SendChatMessage(c *gin.Context) {
	id, ok := siw.bindID(c)
	if !ok {
		return
	}
	if !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.SendChatMessage(c, id)
}

// ResumeTherapySession operation middleware
func (siw *ServerInterfaceWrapper) ResumeTherapySession(c *gin.Context) {
	if !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.ResumeTherapySession(c)
}

// ListTherapySessions operation middleware
func (siw *ServerInterfaceWrapper) ListTherapySessions(c *gin.Context) {
	if !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.ListTherapySessions(c)
}

// CreateTherapySession operation middleware
func (siw *ServerInterfaceWrapper) CreateTherapySession(c *gin.Context) {
	if !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.CreateTherapySession(c)
}

// GetTherapySession operation middleware
func (siw *ServerInterfaceWrapper) GetTherapySession(c *gin.Context) {
	id, ok := siw.bindID(c)
	if !ok {
		return
	}
	if !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.GetTherapySession(c, id)
}

// DeleteTherapySession operation middleware
func (siw *ServerInterfaceWrapper) DeleteTherapySession(c *gin.Context) {
	id, ok := siw.bindID(c)
	if !ok {
		return
	}
	if !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.DeleteTherapySession(c, id)
}

// ActivateTherapySession operation middleware
func (siw *ServerInterfaceWrapper) ActivateTherapySession(c *gin.Context) {
	id, ok := siw.bindID(c)
	if !ok {
		return
	}
	if !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.ActivateTherapySession(c, id)
}

// SendTherapyMessage operation middleware
func (siw *ServerInterfaceWrapper) SendTherapyMessage(c *gin.Context) {
	id, ok := siw.bindID(c)
	if !ok {
		return
	}
	if !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.SendTherapyMessage(c, id)
}

// ListRecords operation middleware
func (siw *ServerInterfaceWrapper) ListRecords(c *gin.Context) {
	if !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.ListRecords(c)
}

// OpenRecord operation middleware
func (siw *ServerInterfaceWrapper) OpenRecord(c *gin.Context) {
	id, ok := siw.bindID(c)
	if !ok {
		return
	}
	if !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.OpenRecord(c, id)
}

// DeleteRecord operation middleware
func (siw *ServerInterfaceWrapper) DeleteRecord(c *gin.Context) {
	id, ok := siw.bindID(c)
	if !ok {
		return
	}
	if !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.DeleteRecord(c, id)
}

// GetRecordReport operation middleware
func (siw *ServerInterfaceWrapper) GetRecordReport(c *gin.Context) {
	id, ok := siw.bindID(c)
	if !ok {
		return
	}
	if !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.GetRecordReport(c, id)
}

// GetRecordImage operation middleware
func (siw *ServerInterfaceWrapper) GetRecordImage(c *gin.Context) {
	id, ok := siw.bindID(c)
	if !ok {
		return
	}
	if !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.GetRecordImage(c, id)
}

// ExportRecords operation middleware
func (siw *ServerInterfaceWrapper) ExportRecords(c *gin.Context) {
	if !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.ExportRecords(c)
}

// GetProfile operation middleware
func (siw *ServerInterfaceWrapper) GetProfile(c *gin.Context) {
	if !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.GetProfile(c)
}

// PutProfile operation middleware
func (siw *ServerInterfaceWrapper) PutProfile(c *gin.Context) {
	if !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.PutProfile(c)
}

// GetCredentials operation middleware
func (siw *ServerInterfaceWrapper) GetCredentials(c *gin.Context) {
	if !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.GetCredentials(c)
}

// PutCredentials operation middleware
func (siw *ServerInterfaceWrapper) PutCredentials(c *gin.Context) {
	if !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.PutCredentials(c)
}

// DeleteCredentials operation middleware
func (siw *ServerInterfaceWrapper) DeleteCredentials(c *gin.Context) {
	if !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.DeleteCredentials(c)
}

// GinServerOptions provides options for the Gin server.
type GinServerOptions struct {
	BaseURL      string
	Middlewares  []MiddlewareFunc
	ErrorHandler func(*gin.Context, error, int)
}

// RegisterHandlers creates http.Handler with routing matching OpenAPI spec.
func RegisterHandlers(router gin.IRouter, si ServerInterface) {
	RegisterHandlersWithOptions(router, si, GinServerOptions{})
}

// RegisterHandlersWithOptions creates http.Handler with additional options
func RegisterHandlersWithOptions(router gin.IRouter, si ServerInterface, options GinServerOptions) {
	errorHandler := options.ErrorHandler
	if errorHandler == nil {
		errorHandler = func(c *gin.Context, err error, statusCode int) {
			c.JSON(statusCode, ErrorResponse{Code: "VALIDATION_ERROR", Message: err.Error()})
		}
	}

	wrapper := ServerInterfaceWrapper{
		Handler:            si,
		HandlerMiddlewares: options.Middlewares,
		ErrorHandler:       errorHandler,
	}

	router.GET(options.BaseURL+"/health", wrapper.GetHealth)
	router.GET(options.BaseURL+"/api/v1/navigation", wrapper.GetNavigation)
	router.POST(options.BaseURL+"/api/v1/navigation/navigate", wrapper.Navigate)
	router.POST(options.BaseURL+"/api/v1/navigation/back", wrapper.NavigateBack)
	router.POST(options.BaseURL+"/api/v1/analysis", wrapper.StartAnalysis)
	router.POST(options.BaseURL+"/api/v1/analysis/cancel", wrapper.CancelAnalysis)
	router.POST(options.BaseURL+"/api/v1/triage", wrapper.SubmitTriage)
	router.POST(options.BaseURL+"/api/v1/pharmacy", wrapper.LookupPharmacy)
	router.POST(options.BaseURL+"/api/v1/transcribe", wrapper.Transcribe)
	router.POST(options.BaseURL+"/api/v1/chat/resume", wrapper.ResumeChatSession)
	router.GET(options.BaseURL+"/api/v1/chat/sessions", wrapper.ListChatSessions)
	router.POST(options.BaseURL+"/api/v1/chat/sessions", wrapper.CreateChatSession)
	router.GET(options.BaseURL+"/api/v1/chat/sessions/:id", wrapper.GetChatSession)
	router.DELETE(options.BaseURL+"/api/v1/chat/sessions/:id", wrapper.DeleteChatSession)
	router.POST(options.BaseURL+"/api/v1/chat/sessions/:id/activate", wrapper.ActivateChatSession)
	router.POST(options.BaseURL+"/api/v1/chat/sessions/:id/messages", wrapper.SendChatMessage)
	router.POST(options.BaseURL+"/api/v1/therapy/resume", wrapper.ResumeTherapySession)
	router.GET(options.BaseURL+"/api/v1/therapy/sessions", wrapper.ListTherapySessions)
	router.POST(options.BaseURL+"/api/v1/therapy/sessions", wrapper.CreateTherapySession)
	router.GET(options.BaseURL+"/api/v1/therapy/sessions/:id", wrapper.GetTherapySession)
	router.DELETE(options.BaseURL+"/api/v1/therapy/sessions/:id", wrapper.DeleteTherapySession)
	router.POST(options.BaseURL+"/api/v1/therapy/sessions/:id/activate", wrapper.ActivateTherapySession)
	router.POST(options.BaseURL+"/api/v1/therapy/sessions/:id/messages", wrapper.SendTherapyMessage)
	router.GET(options.BaseURL+"/api/v1/records", wrapper.ListRecords)
	router.GET(options.BaseURL+"/api/v1/records/:id", wrapper.OpenRecord)
	router.DELETE(options.BaseURL+"/api/v1/records/:id", wrapper.DeleteRecord)
	router.GET(options.BaseURL+"/api/v1/records/:id/report", wrapper.GetRecordReport)
	router.GET(options.BaseURL+"/api/v1/records/:id/image", wrapper.GetRecordImage)
	router.GET(options.BaseURL+"/api/v1/export/records", wrapper.ExportRecords)
	router.GET(options.BaseURL+"/api/v1/profile", wrapper.GetProfile)
	router.PUT(options.BaseURL+"/api/v1/profile", wrapper.PutProfile)
	router.GET(options.BaseURL+"/api/v1/credentials", wrapper.GetCredentials)
	router.PUT(options.BaseURL+"/api/v1/credentials", wrapper.PutCredentials)
	router.DELETE(options.BaseURL+"/api/v1/credentials", wrapper.DeleteCredentials)
}
