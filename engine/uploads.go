// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package engine

import (
	"context"
	"errors"
	"io"

	"github.com/danielhkuo/doudou/auth"
	"github.com/danielhkuo/doudou/models"
)

// RequestUploadSlot admits one upload for the participant if the upload
// gate is open and the participant is below quota
func (e *Engine) RequestUploadSlot(ctx context.Context, sessionID, participantID string) (models.UploadSlot, error) {
	session, err := e.GetSession(ctx, sessionID)
	if err != nil {
		return models.UploadSlot{}, err
	}
	if _, err := e.participant(ctx, sessionID, participantID); err != nil {
		return models.UploadSlot{}, err
	}
	if err := e.checkUploadAdmission(ctx, session, participantID); err != nil {
		return models.UploadSlot{}, err
	}

	token, err := auth.GenerateToken()
	if err != nil {
		return models.UploadSlot{}, Upstream("generate slot token", err)
	}

	slot := models.UploadSlot{
		Token:         token,
		SessionID:     sessionID,
		ParticipantID: participantID,
		UploadURL:     e.uploadURL(token),
		MaxBytes:      e.maxUploadBytes,
		ExpiresAt:     e.now().UTC().Add(e.slotTTL),
	}
	e.slots.Set(token, slot, e.slotTTL)

	e.logger.Info("upload slot issued",
		"event", "doudou_upload_slot_issued",
		"module", "engine",
		"session_id", sessionID,
		"participant_id", participantID,
	)
	return slot, nil
}

func (e *Engine) checkUploadAdmission(ctx context.Context, session models.Session, participantID string) error {
	if !session.UploadPhaseOpen {
		return ErrUploadsClosed
	}
	count, err := e.store.CountImages(ctx, session.ID, participantID)
	if err != nil {
		return Upstream("count images", err)
	}
	if count >= session.MaxUploadsPerParticipant {
		return ErrUploadQuota
	}
	return nil
}

// UploadInput is a confirmed byte transfer against a slot
type UploadInput struct {
	SlotToken   string
	Filename    string
	ContentType string
	Body        io.Reader
}

// CompleteUpload consumes the slot, stores the bytes in the Blob Store and
// records the Image only after the Blob Store succeeds. Failed uploads do
// not consume quota.
func (e *Engine) CompleteUpload(ctx context.Context, in UploadInput) (models.Image, error) {
	slot, ok := e.slots.Take(in.SlotToken)
	if !ok {
		return models.Image{}, ErrSlotNotFound
	}

	unlock := e.participantLocks.Lock(participantKey(slot.SessionID, slot.ParticipantID))
	defer unlock()

	session, err := e.GetSession(ctx, slot.SessionID)
	if err != nil {
		return models.Image{}, err
	}
	if err := e.checkUploadAdmission(ctx, session, slot.ParticipantID); err != nil {
		return models.Image{}, err
	}
	if e.blobs == nil {
		return models.Image{}, Upstream("blob store", errors.New("no blob store configured"))
	}

	stored, err := e.blobs.Put(ctx, BlobObject{
		SessionID:     slot.SessionID,
		ParticipantID: slot.ParticipantID,
		Filename:      in.Filename,
		ContentType:   in.ContentType,
	}, in.Body)
	if err != nil {
		e.logger.Error("blob store put failed",
			"event", "doudou_blob_put_failed",
			"module", "engine",
			"session_id", slot.SessionID,
			"participant_id", slot.ParticipantID,
			"error", err.Error(),
		)
		return models.Image{}, Upstream("blob put", err)
	}

	img := models.Image{
		ID:            e.newID(),
		SessionID:     slot.SessionID,
		ParticipantID: slot.ParticipantID,
		URL:           stored.URL,
		CreatedAt:     e.now().UTC(),
	}
	if err := e.store.AddImage(ctx, img, session.MaxUploadsPerParticipant); err != nil {
		if delErr := e.blobs.Delete(ctx, stored.Key); delErr != nil {
			e.logger.Warn("orphaned blob not deleted",
				"event", "doudou_blob_orphaned",
				"module", "engine",
				"key", stored.Key,
				"error", delErr.Error(),
			)
		}
		return models.Image{}, Upstream("add image", err)
	}

	e.results.invalidate(slot.SessionID)
	e.publish(ctx, slot.SessionID, models.EventImageAdded, func(ev *models.Event) {
		ev.Image = &img
	})

	e.logger.Info("image added",
		"event", "doudou_image_added",
		"module", "engine",
		"session_id", slot.SessionID,
		"participant_id", slot.ParticipantID,
		"image_id", img.ID,
		"bytes", stored.Size,
	)
	return img, nil
}

// ListImages returns a session's images in upload order
func (e *Engine) ListImages(ctx context.Context, sessionID string) ([]models.Image, error) {
	if _, err := e.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	images, err := e.store.ListImages(ctx, sessionID)
	if err != nil {
		return nil, Upstream("list images", err)
	}
	return images, nil
}
