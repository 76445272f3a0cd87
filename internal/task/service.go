// Package task はタスクパネルのコレクション管理機能を提供する。
//
// Serviceはマウントされたパネル1枚につき1インスタンスを生成し、
// ストア上の`tasks`コレクションのプロジェクション（メモリ上のコピー）を保持する。
// 複数インスタンス間の同期はストアへのライトスルーとノーティファイアの
// ブロードキャストのみで行い、プロジェクションの参照共有は行わない。
package task

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/taskdash/internal/metrics"
	"github.com/hitoshi/taskdash/internal/model"
	"github.com/hitoshi/taskdash/internal/notify"
	"github.com/hitoshi/taskdash/internal/security"
	"github.com/hitoshi/taskdash/internal/store"
)

// ServiceConfig はServiceの動作設定を保持する。
type ServiceConfig struct {
	// LoadDelay はロード時の擬似遅延。ローディング状態のUIを成立させるための
	// 意図的な待機であり、0の場合は待機しない（テストでは0を指定する）。
	LoadDelay time.Duration

	// Now は現在時刻の供給関数。nilの場合はtime.Nowを使用する。
	// テストから決定的な時刻を注入するために存在する。
	Now func() time.Time
}

// Service はタスクコレクションマネージャ。
// 全ての操作はミューテックスで直列化される（ブラウザ版のシングルスレッド
// 実行モデルに対応する）。
type Service struct {
	kv        store.KV
	notifier  notify.Notifier
	sanitizer security.InputSanitizerService
	recorder  metrics.Recorder
	logger    *slog.Logger
	loadDelay time.Duration
	now       func() time.Time

	mu         sync.Mutex
	state      model.PanelState
	loadErr    *model.APIError
	projection []model.Task
	filtered   []model.Task
	filter     model.TaskFilterSpec
	editingID  string
	sub        *notify.Subscription
}

// NewService はServiceの新しいインスタンスを生成する。初期状態はLoading。
// recorderがnilの場合はメトリクスを記録しない。
func NewService(
	kv store.KV,
	notifier notify.Notifier,
	sanitizer security.InputSanitizerService,
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
		sanitizer: sanitizer,
		recorder:  recorder,
		logger:    logger,
		loadDelay: cfg.LoadDelay,
		now:       cfg.Now,
		state:     model.PanelStateLoading,
		filter:    model.NeutralTaskFilter(),
	}
}

// Load はストアからタスクコレクションをロードし、パネルを準備完了状態に遷移させる。
//
// キーが存在しない場合は固定のデフォルトシード4件を生成し、使用前にストアへ
// 書き込む。バイト列は存在するが解析できない場合はError状態に遷移し、
// 再シードは行わない（解析不能だが実在するデータを暗黙に破壊しないため）。
// 空配列が正当に永続化されていた場合はEmpty状態になる。
// 初回呼び出し時にノーティファイアの購読を開始する。
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

	raw, ok, err := s.kv.Get(ctx, store.KeyTasks)
	if err != nil {
		apiErr := model.NewStoreFailureError(err.Error())
		s.setErrorState(apiErr)
		return apiErr
	}

	var tasks []model.Task
	if !ok {
		tasks = DefaultTasks(s.now())
		data, err := json.Marshal(tasks)
		if err != nil {
			apiErr := model.NewStoreFailureError(err.Error())
			s.setErrorState(apiErr)
			return apiErr
		}
		if err := s.kv.Set(ctx, store.KeyTasks, data); err != nil {
			apiErr := model.NewStoreFailureError(err.Error())
			s.setErrorState(apiErr)
			return apiErr
		}
		s.recorder.RecordSeed(store.KeyTasks)
		s.logger.Info("seeded default tasks", slog.Int("count", len(tasks)))
	} else {
		if err := json.Unmarshal(raw, &tasks); err != nil {
			apiErr := model.NewLoadFailureError(store.KeyTasks)
			s.setErrorState(apiErr)
			s.logger.Warn("failed to parse stored tasks",
				slog.String("error", err.Error()),
			)
			return apiErr
		}
	}

	s.mu.Lock()
	s.projection = tasks
	s.filtered = ApplyFilter(tasks, s.filter)
	s.loadErr = nil
	if len(tasks) == 0 {
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
	sub, err := s.notifier.Subscribe(store.KeyTasks, s.onExternalChange)
	if err != nil {
		return err
	}
	s.sub = sub
	return nil
}

// Close はノーティファイアの購読を解除する（パネルのアンマウントに対応）。
// 以後の外部変更には反応しなくなる。
func (s *Service) Close() {
	s.mu.Lock()
	sub := s.sub
	s.sub = nil
	s.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
}

// ToggleStatus は指定IDのタスクの完了状態を反転し、ライトスルーとブロードキャストを行う。
// 未知のIDは暗黙のno-opとして許容され、書き込みもブロードキャストも発生しない
// （コレクションはバイト単位で不変のまま残る）。
func (s *Service) ToggleStatus(ctx context.Context, id string) error {
	s.mu.Lock()

	if s.state == model.PanelStateLoading {
		s.mu.Unlock()
		return model.NewPanelLoadingError()
	}

	idx := s.indexOfLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return nil
	}

	next := make([]model.Task, len(s.projection))
	copy(next, s.projection)
	next[idx].Status = next[idx].Status.Toggled()
	next[idx].UpdatedAt = s.bumpUpdatedAt(next[idx].UpdatedAt)

	data, origin, err := s.commitLocked(ctx, next)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.broadcast(ctx, origin, data)
	return nil
}

// BeginEdit は指定IDのタスクを編集モードにする。一時的なUI状態であり永続化されない。
// 未知のIDはno-op。
func (s *Service) BeginEdit(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOfLocked(id) >= 0 {
		s.editingID = id
	}
}

// CancelEdit は編集モードを解除する。永続化状態には触れない。
func (s *Service) CancelEdit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.editingID = ""
}

// SaveEdit は編集中タスクのタイトルと説明を置き換え、ライトスルーとブロードキャストを行う。
//
// タイトルがサニタイズ・トリム後に空の場合はValidationFailureとして拒否し、
// 状態は一切変更せず編集モードを維持する（ユーザーに入力修正を促す）。
// 未知のIDは暗黙のno-opとして許容され、編集モードのみ解除される。
// 成功時は編集モードを解除する。
func (s *Service) SaveEdit(ctx context.Context, id, title, description string) error {
	title = s.sanitizer.Sanitize(title)
	description = s.sanitizer.Sanitize(description)

	if title == "" {
		// 編集モードは維持したまま拒否する
		return model.NewEmptyTitleError()
	}

	s.mu.Lock()

	if s.state == model.PanelStateLoading {
		s.mu.Unlock()
		return model.NewPanelLoadingError()
	}

	idx := s.indexOfLocked(id)
	if idx < 0 {
		s.editingID = ""
		s.mu.Unlock()
		return nil
	}

	next := make([]model.Task, len(s.projection))
	copy(next, s.projection)
	next[idx].Title = title
	next[idx].Description = description
	next[idx].UpdatedAt = s.bumpUpdatedAt(next[idx].UpdatedAt)
	s.editingID = ""

	data, origin, err := s.commitLocked(ctx, next)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.broadcast(ctx, origin, data)
	return nil
}

// SetFilter はフィルタ条件を置き換え、現在のプロジェクションに再適用する。
// ストアには一切触れない。
func (s *Service) SetFilter(spec model.TaskFilterSpec) error {
	if err := ValidateFilter(spec); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.filter = spec
	s.filtered = ApplyFilter(s.projection, spec)
	return nil
}

// Snapshot はパネル表示用の現在状態のコピーを返す。
type Snapshot struct {
	State     model.PanelState
	Err       *model.APIError
	Tasks     []model.Task
	Filtered  []model.Task
	Filter    model.TaskFilterSpec
	EditingID string
}

// Snapshot は現在のパネル状態のコピーを返す。返り値の変更はServiceに影響しない。
func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		State:     s.state,
		Err:       s.loadErr,
		Tasks:     append([]model.Task(nil), s.projection...),
		Filtered:  append([]model.Task(nil), s.filtered...),
		Filter:    s.filter,
		EditingID: s.editingID,
	}
}

// commitLocked は変更後のコレクションをストアへ書き込み、成功時にプロジェクションを
// 更新する。呼び出し側がs.muを保持していること。ステージングから書き込みまでを
// 同一クリティカルセクションに収めないと、同一インスタンス上の並行する変更が
// 同じ基底プロジェクションから出発し、後勝ちの書き込みが先行の確定済み変更を
// 消してしまう。書き込み失敗時はプロジェクションを変更せず、呼び出しは失敗として
// 終了する（自動リトライはしない）。
// 返り値は書き込んだバイト列とブロードキャスト用のorigin。
func (s *Service) commitLocked(ctx context.Context, next []model.Task) ([]byte, string, error) {
	data, err := json.Marshal(next)
	if err != nil {
		return nil, "", model.NewStoreFailureError(err.Error())
	}

	if err := s.kv.Set(ctx, store.KeyTasks, data); err != nil {
		return nil, "", model.NewStoreFailureError(err.Error())
	}

	s.projection = next
	s.filtered = ApplyFilter(next, s.filter)
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
// ハブは他購読者のハンドラを同期呼び出しするため、s.muを保持したまま呼ぶと
// 相互にコミット中の2インスタンス間でデッドロックする。必ずロック外で呼ぶこと。
func (s *Service) broadcast(ctx context.Context, origin string, data []byte) {
	if err := s.notifier.Broadcast(ctx, origin, store.KeyTasks, data); err != nil {
		s.logger.Warn("failed to broadcast tasks change",
			slog.String("error", err.Error()),
		)
		return
	}
	s.recorder.RecordBroadcastSent(store.KeyTasks)
}

// onExternalChange はノーティファイア経由の外部変更を受信し、プロジェクションを
// 受信バイト列から全量置換して現在のフィルタを再適用する。
// ここから再ブロードキャストは行わない（フィードバックループ防止）。
// 解析不能なペイロードは読み捨て、直前の正常なプロジェクションを維持する。
func (s *Service) onExternalChange(env notify.Envelope) {
	var tasks []model.Task
	if err := json.Unmarshal(env.NewValue, &tasks); err != nil {
		s.logger.Warn("malformed external tasks payload discarded",
			slog.String("error", err.Error()),
		)
		return
	}
	s.recorder.RecordBroadcastReceived(store.KeyTasks)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.projection = tasks
	s.filtered = ApplyFilter(tasks, s.filter)

	// Ready後のみ状態を追従させる。Loading中はLoad完了が、Errorは再マウントが
	// それぞれ状態を確定する。
	if s.state == model.PanelStatePopulated || s.state == model.PanelStateEmpty {
		if len(tasks) == 0 {
			s.state = model.PanelStateEmpty
		} else {
			s.state = model.PanelStatePopulated
		}
	}
}

// indexOfLocked は指定IDのタスクの位置を返す。見つからない場合は-1。
// 呼び出し側がs.muを保持していること。
func (s *Service) indexOfLocked(id string) int {
	for i := range s.projection {
		if s.projection[i].ID == id {
			return i
		}
	}
	return -1
}

// bumpUpdatedAt は現在時刻を返す。ただしUpdatedAtの厳密な単調増加を保証するため、
// 時計が進んでいない場合は直前の値から最小刻みだけ進める。
func (s *Service) bumpUpdatedAt(prev time.Time) time.Time {
	next := s.now()
	if !next.After(prev) {
		next = prev.Add(time.Millisecond)
	}
	return next
}
