package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/vcscsvcscs/medassist/pkg/api"
)

// Server implements api.ServerInterface by delegating to the individual handlers
type Server struct {
	Health     *HealthHandler
	Navigation *NavigationHandler
	Assistant  *AssistantHandler
	Chat       *ConversationHandler
	Therapy    *ConversationHandler
	Records    *RecordsHandler
	Settings   *SettingsHandler
}

var _ api.ServerInterface = (*Server)(nil)

// Health endpoint
func (s *Server) GetHealth(c *gin.Context) {
	s.Health.GetHealth(c)
}

// Navigation endpoints
func (s *Server) GetNavigation(c *gin.Context) {
	s.Navigation.GetNavigation(c)
}

func (s *Server) Navigate(c *gin.Context) {
	s.Navigation.Navigate(c)
}

func (s *Server) NavigateBack(c *gin.Context) {
	s.Navigation.NavigateBack(c)
}

func (s *Server) StartAnalysis(c *gin.Context) {
	s.Navigation.StartAnalysis(c)
}

func (s *Server) CancelAnalysis(c *gin.Context) {
	s.Navigation.CancelAnalysis(c)
}

func (s *Server) SubmitTriage(c *gin.Context) {
	s.Navigation.SubmitTriage(c)
}

func (s *Server) OpenRecord(c *gin.Context, id string) {
	s.Navigation.OpenRecord(c, id)
}

// Assistant endpoints
func (s *Server) LookupPharmacy(c *gin.Context) {
	s.Assistant.LookupPharmacy(c)
}

func (s *Server) Transcribe(c *gin.Context) {
	s.Assistant.Transcribe(c)
}

// Chat session endpoints
func (s *Server) ResumeChatSession(c *gin.Context) {
	s.Chat.Resume(c)
}

func (s *Server) ListChatSessions(c *gin.Context) {
	s.Chat.List(c)
}

func (s *Server) CreateChatSession(c *gin.Context) {
	s.Chat.Create(c)
}

func (s *Server) GetChatSession(c *gin.Context, id string) {
	s.Chat.Get(c, id)
}

func (s *Server) DeleteChatSession(c *gin.Context, id string) {
	s.Chat.Delete(c, id)
}

func (s *Server) ActivateChatSession(c *gin.Context, id string) {
	s.Chat.Activate(c, id)
}

func (s *Server) SendChatMessage(c *gin.Context, id string) {
	s.Chat.Send(c, id)
}

// Therapy session endpoints
func (s *Server) ResumeTherapySession(c *gin.Context) {
	s.Therapy.Resume(c)
}

func (s *Server) ListTherapySessions(c *gin.Context) {
	s.Therapy.List(c)
}

func (s *Server) CreateTherapySession(c *gin.Context) {
	s.Therapy.Create(c)
}

func (s *Server) GetTherapySession(c *gin.Context, id string) {
	s.Therapy.Get(c, id)
}

func (s *Server) DeleteTherapySession(c *gin.Context, id string) {
	s.Therapy.Delete(c, id)
}

func (s *Server) ActivateTherapySession(c *gin.Context, id string) {
	s.Therapy.Activate(c, id)
}

func (s *Server) SendTherapyMessage(c *gin.Context, id string) {
	s.Therapy.Send(c, id)
}

// Record endpoints
func (s *Server) ListRecords(c *gin.Context) {
	s.Records.ListRecords(c)
}

func (s *Server) DeleteRecord(c *gin.Context, id string) {
	s.Records.DeleteRecord(c, id)
}

func (s *Server) GetRecordReport(c *gin.Context, id string) {
	s.Records.GetRecordReport(c, id)
}

func (s *Server) GetRecordImage(c *gin.Context, id string) {
	s.Records.GetRecordImage(c, id)
}

func (s *Server) ExportRecords(c *gin.Context) {
	s.Records.ExportRecords(c)
}

// Settings endpoints
func (s *Server) GetProfile(c *gin.Context) {
	s.Settings.GetProfile(c)
}

func (s *Server) PutProfile(c *gin.Context) {
	s.Settings.PutProfile(c)
}

func (s *Server) GetCredentials(c *gin.Context) {
	s.Settings.GetCredentials(c)
}

func (s *Server) PutCredentials(c *gin.Context) {
	s.Settings.PutCredentials(c)
}

func (s *Server) DeleteCredentials(c *gin.Context) {
	s.Settings.DeleteCredentials(c)
}
