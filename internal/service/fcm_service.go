package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

const (
	ledgerChannelID = "ledger"
	ledgerNoticeTTL = 24 * time.Hour
)

var ErrFCMNotConfigured = errors.New("firebase service account path not set")

// FCMService pushes ledger notices through Firebase Cloud Messaging. A nil
// *FCMService is valid and sends nothing.
type FCMService struct {
	client *messaging.Client
	log    *zap.Logger
}

func NewFCMService(ctx context.Context, serviceAccountPath string, log *zap.Logger) (*FCMService, error) {
	if serviceAccountPath == "" {
		return nil, ErrFCMNotConfigured
	}
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(serviceAccountPath))
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("init messaging client: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &FCMService{client: client, log: log}, nil
}

// ledgerMessage builds the push for one notice. Notices of the same type
// collapse on the device so a burst of bonuses shows as the latest one.
func ledgerMessage(token, notifType, title, body string, data map[string]string) *messaging.Message {
	ttl := ledgerNoticeTTL
	return &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority:    "normal",
			CollapseKey: notifType,
			TTL:         &ttl,
			Notification: &messaging.AndroidNotification{
				ChannelID: ledgerChannelID,
				Sound:     "default",
			},
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{
				"apns-collapse-id": notifType,
				"apns-priority":    "5",
			},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{Sound: "default"},
			},
		},
	}
}

func (s *FCMService) SendToUser(ctx context.Context, fcmToken string, notifType, title, body string, data map[string]interface{}) error {
	if s == nil || fcmToken == "" {
		return nil
	}
	id, err := s.client.Send(ctx, ledgerMessage(fcmToken, notifType, title, body, pushData(notifType, data)))
	if err != nil {
		s.log.Warn("[FCM] send failed", zap.String("type", notifType), zap.Error(err))
		return err
	}
	s.log.Debug("[FCM] sent", zap.String("type", notifType), zap.String("message_id", id))
	return nil
}

// pushData flattens a notice payload. FCM requires string values.
func pushData(notifType string, data map[string]interface{}) map[string]string {
	out := make(map[string]string, len(data)+1)
	out["type"] = notifType
	for k, v := range data {
		switch val := v.(type) {
		case string:
			out[k] = val
		case uint:
			out[k] = strconv.FormatUint(uint64(val), 10)
		case int:
			out[k] = strconv.Itoa(val)
		case int64:
			out[k] = strconv.FormatInt(val, 10)
		case float64:
			out[k] = strconv.FormatFloat(val, 'f', -1, 64)
		default:
			b, _ := json.Marshal(v)
			out[k] = string(b)
		}
	}
	return out
}
