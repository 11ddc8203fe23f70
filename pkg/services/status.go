package services

import (
	"sync"

	"erp-admin-console/pkg/models"
)

// StatusChannel holds the latest StatusMessage shown to the user.
type StatusChannel struct {
	mu      sync.RWMutex
	current *models.StatusMessage
	source  Collection // set when current is a load error
}

// NewStatusChannel は新しいStatusChannelを生成します。
func NewStatusChannel() *StatusChannel {
	return &StatusChannel{}
}

// Success 成功メッセージを設定
func (s *StatusChannel) Success(text string) {
	s.set(models.StatusMessage{Text: text, Kind: models.StatusSuccess})
}

// Error エラーメッセージを設定
func (s *StatusChannel) Error(text string) {
	s.set(models.StatusMessage{Text: text, Kind: models.StatusError})
}

func (s *StatusChannel) set(msg models.StatusMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = &msg
	s.source = ""
}

// loadError ロード失敗のエラーメッセージを設定
func (s *StatusChannel) loadError(coll Collection, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = &models.StatusMessage{Text: text, Kind: models.StatusError}
	s.source = coll
}

// Clear メッセージを消去
func (s *StatusChannel) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
	s.source = ""
}

// clearErrorAfterLoad clears an error after a successful load of coll. A load
// error raised by another collection is kept, so a success never hides the
// other collection's failure regardless of which response arrives first.
func (s *StatusChannel) clearErrorAfterLoad(coll Collection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil || s.current.Kind != models.StatusError {
		return
	}
	if s.source != "" && s.source != coll {
		return
	}
	s.current = nil
	s.source = ""
}

// Current 現在のメッセージを取得（未設定ならnil）
func (s *StatusChannel) Current() *models.StatusMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	msg := *s.current
	return &msg
}
