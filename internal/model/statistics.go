package model

// LetterStats backs the dashboard counters.
type LetterStats struct {
	Total       int64 `json:"total"`
	SuratMasuk  int64 `json:"surat_masuk"`
	SuratKeluar int64 `json:"surat_keluar"`
	Today       int64 `json:"today"`
}
