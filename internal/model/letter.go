package model

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

type LetterType string

const (
	SuratMasuk  LetterType = "Surat Masuk"
	SuratKeluar LetterType = "Surat Keluar"
)

func (t LetterType) Valid() bool {
	return t == SuratMasuk || t == SuratKeluar
}

const (
	LetterActive   = "active"
	LetterArchived = "archived"
)

func ValidLetterStatus(s string) bool {
	return s == LetterActive || s == LetterArchived
}

type Letter struct {
	ID         uint       `json:"id" gorm:"primaryKey"`
	NomorSurat string     `json:"nomor_surat" gorm:"size:100;not null;index"`
	Perihal    string     `json:"perihal" gorm:"type:text;not null"`
	Tanggal    Date       `json:"tanggal" gorm:"type:date;not null;index"`
	Jenis      LetterType `json:"jenis" gorm:"size:20;not null;index"`
	Status     string     `json:"status" gorm:"size:20;not null;default:'active'"`
	CreatedBy  *uint      `json:"created_by"`
	UpdatedBy  *uint      `json:"updated_by"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (Letter) TableName() string { return "surat" }

const DateLayout = "2006-01-02"

// Date is a calendar day with no time-of-day, serialized as YYYY-MM-DD.
type Date struct {
	time.Time
}

func NewDate(y int, m time.Month, d int) Date {
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{t}, nil
}

// Today is the server's current calendar day.
func Today() Date {
	now := time.Now()
	return NewDate(now.Year(), now.Month(), now.Day())
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Format(DateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.Format(DateLayout), nil
}

// Scan accepts what the sqlite, postgres and mysql drivers hand back for a
// DATE column.
func (d *Date) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
		return nil
	case time.Time:
		*d = NewDate(v.Year(), v.Month(), v.Day())
		return nil
	case string:
		return d.scanString(v)
	case []byte:
		return d.scanString(string(v))
	default:
		return fmt.Errorf("cannot scan %T into Date", src)
	}
}

func (d *Date) scanString(s string) error {
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
