package api

// Meta is the pagination block attached to every list response.
type Meta struct {
	Total       int `json:"total"`
	PerPage     int `json:"per_page"`
	CurrentPage int `json:"current_page"`
	FirstPage   int `json:"first_page"`
	LastPage    int `json:"last_page"`
	From        int `json:"from"`
	To          int `json:"to"`
}

// Section is a selectable city.
type Section struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// SectionsResponse is the body of GET /sections/list.
type SectionsResponse struct {
	Sections []Section `json:"sections"`
	Meta     Meta      `json:"meta"`
}

// PrayerTime is one calendar day's schedule for one city.
// Times are "HH:MM" 24-hour strings. There is no year: the record applies to
// Day/Month of whatever year the clock says it is.
type PrayerTime struct {
	ID             int    `json:"id"`
	Day            int    `json:"day"`
	Month          int    `json:"month"`
	FajrFirstTime  string `json:"fajr_first_time"`  // adhan
	FajrSecondTime string `json:"fajr_second_time"` // iqama
	SunriseTime    string `json:"sunrise_time"`
	DhuhrTime      string `json:"dhuhr_time"`
	AsrTime        string `json:"asr_time"`
	MaghribTime    string `json:"maghrib_time"`
	IshaTime       string `json:"isha_time"`
	SectionID      int    `json:"section_id,omitempty"`
	Name           string `json:"name,omitempty"`
	CreatedAt      string `json:"created_at,omitempty"`
	UpdatedAt      string `json:"updated_at,omitempty"`
}

// PrayerTimesResponse is the body of GET /prayer-times/list.
type PrayerTimesResponse struct {
	PrayerTimes []PrayerTime `json:"prayer_times"`
	Meta        Meta         `json:"meta"`
}

// LoginResponse is the body of POST /login.
type LoginResponse struct {
	Token   string `json:"token"`
	Expires string `json:"expires"`
}

// User is an admin account.
type User struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
	Role        string `json:"role,omitempty"`
}

// MeResponse is the body of GET /me.
type MeResponse struct {
	User User `json:"user"`
}

// AdhkarCategory groups remembrances (morning, evening, after prayer, ...).
type AdhkarCategory struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Dhikr is a single remembrance text.
type Dhikr struct {
	ID         int    `json:"id"`
	CategoryID int    `json:"category_id"`
	Text       string `json:"text"`
	Repeat     int    `json:"repeat,omitempty"`
	Source     string `json:"source,omitempty"`
}

// Hadith is a narration grouped under a topic.
type Hadith struct {
	ID     int    `json:"id"`
	Topic  string `json:"topic"`
	Text   string `json:"text"`
	Source string `json:"source,omitempty"`
}

// AdhkarResponse is the body of GET /adhkar/list and /adhkar/category.
type AdhkarResponse struct {
	Adhkar []Dhikr `json:"adhkar"`
	Meta   Meta    `json:"meta"`
}

// AdhkarCategoriesResponse is the body of GET /adhkar-categories/list.
type AdhkarCategoriesResponse struct {
	Categories []AdhkarCategory `json:"adhkar_categories"`
	Meta       Meta             `json:"meta"`
}

// HadithsResponse is the body of GET /hadiths/list and /hadiths/topic.
type HadithsResponse struct {
	Hadiths []Hadith `json:"hadiths"`
	Meta    Meta     `json:"meta"`
}

// MutationResponse is the common shape of admin create/update/delete replies.
// Token, when present, replaces the caller's bearer token.
type MutationResponse struct {
	Message string `json:"message"`
	Token   string `json:"token,omitempty"`
	Error   string `json:"error,omitempty"`
}
