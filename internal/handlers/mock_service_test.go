package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"room_controller/internal/models"
	"room_controller/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error
	admin         bool
	adminErr      error

	lastSignUpUsername string
	lastSignUpPassword string
	lastGenUsername    string
	lastGenPassword    string
	lastParseToken     string
	lastAdminCheck     int
}

func (m *mockAuth) SignUp(username, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}
func (m *mockAuth) IsAdmin(userID int) (bool, error) {
	m.lastAdminCheck = userID
	return m.admin, m.adminErr
}

type mockController struct {
	mu         sync.Mutex
	result     service.CommandResult
	execErr    error
	status     models.RoomState
	statusErr  error
	executed   []service.Command
	statusCall int
}

func (m *mockController) Execute(ctx context.Context, cmd service.Command) (service.CommandResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.executed = append(m.executed, cmd)
	res := m.result
	res.Command = cmd.String()
	return res, m.execErr
}

func (m *mockController) Status(ctx context.Context) (models.RoomState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statusCall++
	st := m.status
	m.status.Message = ""
	return st, m.statusErr
}

type mockMonitoring struct {
	mu    sync.Mutex
	state models.RoomState
	err   error
}

func (m *mockMonitoring) GetState(ctx context.Context) (models.RoomState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, m.err
}

func (m *mockMonitoring) set(st models.RoomState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = st
}

type mockEventLog struct {
	resp     []models.RoomEvent
	err      error
	lastFrom time.Time
	lastTo   time.Time
	lastType string
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]models.RoomEvent, error) {
	m.lastFrom = f.From
	m.lastTo = f.To
	m.lastType = f.Type
	return m.resp, m.err
}

type mockSimulation struct {
	distance   *int
	tempC      float64
	humidity   float64
	climateErr error
	cards      []string
	cardErr    error
}

func (m *mockSimulation) SetDistance(cm int) { m.distance = &cm }
func (m *mockSimulation) SetClimate(tempC, humidityPct float64) error {
	m.tempC, m.humidity = tempC, humidityPct
	return m.climateErr
}
func (m *mockSimulation) PresentCard(uid string) error {
	if m.cardErr != nil {
		return m.cardErr
	}
	m.cards = append(m.cards, uid)
	return nil
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}

func withAuth(req *http.Request, token string) *http.Request {
	for k, vv := range authHeader(token) {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	return req
}
