// Package model はドメインモデルを定義する。
package model

// PanelState はパネルの表示状態を表す。
// 状態遷移は Loading → Ready(Populated | Empty | Error) の一方向のみで、
// Ready後の再遷移はReload（再マウント）によってのみ発生する。
type PanelState string

const (
	// PanelStateLoading は初回ロード中の状態。
	PanelStateLoading PanelState = "loading"
	// PanelStatePopulated はレコードが1件以上ある状態。
	PanelStatePopulated PanelState = "populated"
	// PanelStateEmpty は空配列が正当に永続化されている状態。
	PanelStateEmpty PanelState = "empty"
	// PanelStateError はロード失敗が確定した状態。リトライはユーザー操作に委ねる。
	PanelStateError PanelState = "error"
)
