package domain

// SweepState описывает состояние товара в рамках одной проверки цен.
// Pending → Fetching → Updated | Failed. Следующая проверка начинает заново.
type SweepState string

const (
	SweepPending  SweepState = "pending"
	SweepFetching SweepState = "fetching"
	SweepUpdated  SweepState = "updated"
	SweepFailed   SweepState = "failed"
)

// FetchStoreFailure — вид ошибки для товара, цену которого получили,
// но не смогли сохранить.
const FetchStoreFailure FetchErrorKind = "store"
