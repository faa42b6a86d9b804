package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/deskforge/pushdesk/internal/repository"
)

func newTestRouter(t *testing.T) (*gin.Engine, sqlmock.Sqlmock) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	h := NewDeviceHandler(repository.NewDeviceRepository(gormDB))

	router := gin.New()
	// Stand-in for the auth middleware.
	router.Use(func(c *gin.Context) {
		c.Set("user_id", int64(7))
	})
	router.POST("/devices/register", h.Register)
	router.POST("/devices/heartbeat", h.Heartbeat)
	return router, mock
}

func postJSON(router *gin.Engine, path string, payload interface{}) *httptest.ResponseRecorder {
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHeartbeat_UnknownDeviceIsDistinctStatus(t *testing.T) {
	router, mock := newTestRouter(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM "devices"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	w := postJSON(router, "/devices/heartbeat", gin.H{"device_id": uuid.New()})

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"success":false,"error":"device_not_found"}`, w.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegister_MissingTokenRejectedAtBoundary(t *testing.T) {
	router, mock := newTestRouter(t)

	w := postJSON(router, "/devices/register", gin.H{"device_id": uuid.New()})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	// Nothing may reach the database for invalid input.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegister_CreatesDevice(t *testing.T) {
	router, mock := newTestRouter(t)
	deviceID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM "devices" WHERE owner_user_id = \$1 AND device_id = \$2`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`SELECT .* FROM "devices" WHERE push_token = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`INSERT INTO "devices"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New()))
	mock.ExpectCommit()

	w := postJSON(router, "/devices/register", gin.H{
		"device_id": deviceID,
		"token":     "push-token-1",
		"platform":  "web",
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, fmt.Sprintf(`{"success":true,"device_id":"%s"}`, deviceID), w.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}
