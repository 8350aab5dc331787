package service

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"viewearn/internal/domain"
	"viewearn/internal/models"
)

type NotificationStore interface {
	Create(n *models.Notification) error
	ListByUserID(userID uint, limit, offset int) ([]models.Notification, error)
	MarkRead(id, userID uint) error
	SaveDeviceToken(userID uint, token string) error
	DeviceToken(userID uint) (string, error)
}

type Pusher interface {
	SendToUser(ctx context.Context, fcmToken string, notifType, title, body string, data map[string]interface{}) error
}

type NotificationService struct {
	repo NotificationStore
	push Pusher
	log  *zap.Logger
}

// NewNotificationService wires notices to the store and, when push is
// non-nil, to FCM.
func NewNotificationService(repo NotificationStore, push Pusher, log *zap.Logger) *NotificationService {
	if log == nil {
		log = zap.NewNop()
	}
	return &NotificationService{repo: repo, push: push, log: log}
}

func (s *NotificationService) Notify(userID uint, notifType, title, body string, data map[string]interface{}) error {
	var dataJSON string
	if data != nil {
		b, _ := json.Marshal(data)
		dataJSON = string(b)
	}
	err := s.repo.Create(&models.Notification{
		UserID: userID,
		Type:   notifType,
		Title:  title,
		Body:   body,
		Data:   dataJSON,
	})
	if err != nil {
		return err
	}
	s.sendPush(userID, notifType, title, body, data)
	return nil
}

func (s *NotificationService) sendPush(userID uint, notifType, title, body string, data map[string]interface{}) {
	if s.push == nil {
		return
	}
	token, err := s.repo.DeviceToken(userID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.log.Warn("[FCM] token lookup failed", zap.Uint("user_id", userID), zap.Error(err))
		}
		return
	}
	if token == "" {
		return
	}
	_ = s.push.SendToUser(context.Background(), token, notifType, title, body, data)
}

func (s *NotificationService) List(userID uint, limit, offset int) ([]models.Notification, error) {
	return s.repo.ListByUserID(userID, limit, offset)
}

func (s *NotificationService) MarkRead(id, userID uint) error {
	return s.repo.MarkRead(id, userID)
}

func (s *NotificationService) RegisterDevice(userID uint, token string) error {
	return s.repo.SaveDeviceToken(userID, token)
}
