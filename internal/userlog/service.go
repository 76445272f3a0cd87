// Package userlog は最近のユーザー活動パネルのコレクション管理機能を提供する。
//
// Serviceはマウントされたパネル1枚につき1インスタンスを生成し、
// ストア上の`userLogs`コレクションのプロジェクションを保持する。
// タスクパネルと同様、インスタンス間の同期はライトスルーとブロードキャスト
// のみで行う。
package userlog

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/hitoshi/taskdash/internal/metrics"
	"github.com/hitoshi/taskdash/internal/model"
	"github.com/hitoshi/taskdash/internal/notify"
	"github.com/hitoshi/taskdash/internal/store"
)

// ServiceConfig はServiceの動作設定を保持する。
type ServiceConfig struct {
	// LoadDelay はロード時の擬似遅延。0の場合は待機しない。
	LoadDelay time.Duration

	// Now は現在時刻の供給関数。nilの場合はtime.Nowを使用する。
	Now func() time.Time
}

// Service はユーザーログコレクションマネージャ。
type Service struct {
	kv        store.KV
	notifier  notify.Notifier
	recorder  metrics.Recorder
	logger    *slog.Logger
	loadDelay time.Duration
	now       func() time.Time

	mu         sync.Mutex
	state      model.PanelState
	loadErr    *model.APIError
	projection []model.UserLog
	pendingID  string
	sub        *notify.Subscription
}

// NewService はServiceの新しいインスタンスを生成する。初期状態はLoading。
// recorderがnilの場合はメトリクスを記録しない。
func NewService(
	kv store.KV,
	notifier notify.Notifier,
	recorder metrics.Recorder,
	logger *slog.Logger,
	cfg ServiceConfig,
) *Service {
	if recorder == nil {
		recorder = metrics.Noop{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		kv:        kv,
		notifier:  notifier,
		recorder:  recorder,
		logger:    logger,
		loadDelay: cfg.LoadDelay,
		now:       cfg.Now,
		state:     model.PanelStateLoading,
	}
}

// sentinelEmpty はシード対象とみなす永続値かどうかを判定する。
// 歴史的事情により、userLogsはキー不在だけでなく空バイト列・"null"文字列・
// 空配列もシード対象として扱う。タスク側の「解析不能はError、空配列はEmpty」
// とは異なる分類であり、意図的に別タクソノミとして維持している。
func sentinelEmpty(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 ||
		bytes.Equal(trimmed, []byte("null")) ||
		bytes.Equal(trimmed, []byte("[]"))
}

// Load はストアからユーザーログコレクションをロードする。
//
// キーが不在、または空相当のセンチネル値（空バイト列・"null"・空配列）の場合は
// 固定のデモ用シード3件を生成し、使用前にストアへ書き込む。
// プロジェクションはロード時に1回だけloginTime降順でソートされる。以後の
// 変更（削除・外部変更の反映）では並べ直さない。
// 解析不能なバイト列はError状態に遷移し、再シードは行わない。
func (s *Service) Load(ctx context.Context) error {
	start := s.now()

	if s.loadDelay > 0 {
		timer := time.NewTimer(s.loadDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	if err := s.ensureSubscribed(); err != nil {
		return err
	}

	raw, ok, err := s.kv.Get(ctx, store.KeyUserLogs)
	if err != nil {
		apiErr := model.NewStoreFailureError(err.Error())
		s.setErrorState(apiErr)
		return apiErr
	}

	var logs []model.UserLog
	if !ok || sentinelEmpty(raw) {
		logs = DefaultUserLogs(s.now())
		data, err := json.Marshal(logs)
		if err != nil {
			apiErr := model.NewStoreFailureError(err.Error())
			s.setErrorState(apiErr)
			return apiErr
		}
		if err := s.kv.Set(ctx, store.KeyUserLogs, data); err != nil {
			apiErr := model.NewStoreFailureError(err.Error())
			s.setErrorState(apiErr)
			return apiErr
		}
		s.recorder.RecordSeed(store.KeyUserLogs)
		s.logger.Info("seeded default user logs", slog.Int("count", len(logs)))
	} else {
		if err := json.Unmarshal(raw, &logs); err != nil {
			apiErr := model.NewLoadFailureError(store.KeyUserLogs)
			s.setErrorState(apiErr)
			s.logger.Warn("failed to parse stored user logs",
				slog.String("error", err.Error()),
			)
			return apiErr
		}
	}

	// ロード時のみの並べ替え。安定ソートで同時刻レコードの相対順序を保つ。
	sort.SliceStable(logs, func(i, j int) bool {
		return logs[i].LoginTime.After(logs[j].LoginTime)
	})

	s.mu.Lock()
	s.projection = logs
	s.loadErr = nil
	if len(logs) == 0 {
		s.state = model.PanelStateEmpty
	} else {
		s.state = model.PanelStatePopulated
	}
	s.mu.Unlock()

	s.recorder.RecordLoadLatency(s.now().Sub(start))
	return nil
}

// setErrorState はパネルをError状態に遷移させる。
func (s *Service) setErrorState(apiErr *model.APIError) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = model.PanelStateError
	s.loadErr = apiErr
}

// ensureSubscribed はノーティファイアの購読を一度だけ開始する。
func (s *Service) ensureSubscribed() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sub != nil {
		return nil
	}
	sub, err := s.notifier.Subscribe(store.KeyUserLogs, s.onExternalChange)
	if err != nil {
		return err
	}
	s.sub = sub
	return nil
}

// Close はノーティファイアの購読を解除する（パネルのアンマウントに対応）。
func (s *Service) Close() {
	s.mu.Lock()
	sub := s.sub
	s.sub = nil
	s.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
}

// RequestDelete は二段階確認の削除を行う。
//
// 初回の呼び出しはidを確認待ちとして記録するだけで、ストアには触れない
// （deleted=falseを返す）。同じidでの2回目の呼び出しでレコードを取り除き、
// 縮小後のコレクションをライトスルーして確認待ちを解除する（deleted=true）。
// 確認待ち中に別のidで呼ばれた場合は確認待ちを付け替えるだけで、削除は
// 発生しない。
func (s *Service) RequestDelete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()

	if s.state == model.PanelStateLoading {
		s.mu.Unlock()
		return false, model.NewPanelLoadingError()
	}

	if s.pendingID != id {
		s.pendingID = id
		s.mu.Unlock()
		return false, nil
	}

	// 確認済み。レコードが既に存在しない場合は確認待ちだけ解除する。
	s.pendingID = ""
	idx := -1
	for i := range s.projection {
		if s.projection[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return false, nil
	}

	next := make([]model.UserLog, 0, len(s.projection)-1)
	next = append(next, s.projection[:idx]...)
	next = append(next, s.projection[idx+1:]...)

	data, origin, err := s.commitLocked(ctx, next)
	s.mu.Unlock()
	if err != nil {
		return false, err
	}

	s.broadcast(ctx, origin, data)
	return true, nil
}

// CancelDelete は確認待ちを解除する。ストアには触れない。
func (s *Service) CancelDelete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingID = ""
}

// ResetToSeed はコレクションが空の場合に限り、固定のデモ用シードで
// ストアとプロジェクションを再構築する。空でない場合は拒否する
// （デモ用の機能であり、一般的なリストア手段ではない）。
func (s *Service) ResetToSeed(ctx context.Context) error {
	s.mu.Lock()

	if s.state == model.PanelStateLoading {
		s.mu.Unlock()
		return model.NewPanelLoadingError()
	}
	if len(s.projection) != 0 {
		s.mu.Unlock()
		return model.NewResetNotAllowedError()
	}

	logs := DefaultUserLogs(s.now())
	sort.SliceStable(logs, func(i, j int) bool {
		return logs[i].LoginTime.After(logs[j].LoginTime)
	})

	data, origin, err := s.commitLocked(ctx, logs)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.recorder.RecordSeed(store.KeyUserLogs)
	s.broadcast(ctx, origin, data)
	return nil
}

// Snapshot はパネル表示用の現在状態のコピーを返す。
type Snapshot struct {
	State     model.PanelState
	Err       *model.APIError
	Logs      []model.UserLog
	PendingID string
}

// Snapshot は現在のパネル状態のコピーを返す。返り値の変更はServiceに影響しない。
func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		State:     s.state,
		Err:       s.loadErr,
		Logs:      append([]model.UserLog(nil), s.projection...),
		PendingID: s.pendingID,
	}
}

// commitLocked は変更後のコレクションをストアへ書き込み、成功時にプロジェクションを
// 更新する。呼び出し側がs.muを保持していること。ステージングから書き込みまでを
// 同一クリティカルセクションに収めないと、同一インスタンス上の並行する変更が
// 同じ基底プロジェクションから出発し、後勝ちの書き込みが先行の確定済み変更を
// 消してしまう。返り値は書き込んだバイト列とブロードキャスト用のorigin。
func (s *Service) commitLocked(ctx context.Context, next []model.UserLog) ([]byte, string, error) {
	data, err := json.Marshal(next)
	if err != nil {
		return nil, "", model.NewStoreFailureError(err.Error())
	}

	if err := s.kv.Set(ctx, store.KeyUserLogs, data); err != nil {
		return nil, "", model.NewStoreFailureError(err.Error())
	}

	s.projection = next
	if len(next) == 0 {
		s.state = model.PanelStateEmpty
	} else {
		s.state = model.PanelStatePopulated
	}
	origin := ""
	if s.sub != nil {
		origin = s.sub.ID
	}
	return data, origin, nil
}

// broadcast は確定済みの変更を発行する。配信はfire-and-forgetで、失敗しても
// ローカル状態とストアは正しいためログに残すのみとする。
// ハブは他購読者のハンドラを同期呼び出しするため、必ずロック外で呼ぶこと。
func (s *Service) broadcast(ctx context.Context, origin string, data []byte) {
	if err := s.notifier.Broadcast(ctx, origin, store.KeyUserLogs, data); err != nil {
		s.logger.Warn("failed to broadcast user logs change",
			slog.String("error", err.Error()),
		)
		return
	}
	s.recorder.RecordBroadcastSent(store.KeyUserLogs)
}

// onExternalChange はノーティファイア経由の外部変更を受信し、プロジェクションを
// 受信バイト列から全量置換する。ソートはロード時のみの処理のため、ここでは
// 並べ直さない。再ブロードキャストも行わない。
// 解析不能なペイロードは読み捨てる。
func (s *Service) onExternalChange(env notify.Envelope) {
	var logs []model.UserLog
	if err := json.Unmarshal(env.NewValue, &logs); err != nil {
		s.logger.Warn("malformed external user logs payload discarded",
			slog.String("error", err.Error()),
		)
		return
	}
	s.recorder.RecordBroadcastReceived(store.KeyUserLogs)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.projection = logs

	if s.state == model.PanelStatePopulated || s.state == model.PanelStateEmpty {
		if len(logs) == 0 {
			s.state = model.PanelStateEmpty
		} else {
			s.state = model.PanelStatePopulated
		}
	}
}
