package engine

import (
	"time"

	"github.com/oggyb/muzz-match/internal/db"
)

// ProfileSummary is the public face of a profile. It never carries contact fields.
type ProfileSummary struct {
	UserID      uint64   `json:"userId"`
	DisplayName string   `json:"displayName"`
	Gender      string   `json:"gender"`
	Age         int      `json:"age,omitempty"`
	Prefecture  string   `json:"prefecture,omitempty"`
	Bio         string   `json:"bio,omitempty"`
	PhotoURLs   []string `json:"photoUrls,omitempty"`
}

// Summarize projects p at now. A nil profile yields just the id.
func Summarize(userID uint64, p *db.Profile, now time.Time) ProfileSummary {
	if p == nil {
		return ProfileSummary{UserID: userID}
	}
	s := ProfileSummary{
		UserID:      p.UserID,
		DisplayName: p.DisplayName,
		Gender:      p.Gender,
		Prefecture:  p.Prefecture,
		Bio:         p.Bio,
	}
	if age, ok := ageAt(p.BirthDate, now); ok {
		s.Age = age
	}
	for _, ph := range p.Photos {
		s.PhotoURLs = append(s.PhotoURLs, ph.URL)
	}
	return s
}

// ageAt returns completed years between birth and now.
func ageAt(birth *time.Time, now time.Time) (int, bool) {
	if birth == nil || birth.IsZero() {
		return 0, false
	}
	by, bm, bd := birth.Date()
	ny, nm, nd := now.Date()
	age := ny - by
	if nm < bm || (nm == bm && nd < bd) {
		age--
	}
	if age < 0 {
		return 0, false
	}
	return age, true
}

// TargetGenders returns the candidate genders for a viewer, nil meaning all.
//
// looking_for wins when set ("any" means all). Otherwise male and female
// viewers get the binary opposite and an "other" viewer sees everyone, so
// "other" candidates only surface for viewers open to any gender.
func TargetGenders(gender, lookingFor string) []string {
	switch lookingFor {
	case db.GenderMale:
		return []string{db.GenderMale}
	case db.GenderFemale:
		return []string{db.GenderFemale}
	case "any":
		return nil
	}
	switch gender {
	case db.GenderMale:
		return []string{db.GenderFemale}
	case db.GenderFemale:
		return []string{db.GenderMale}
	default:
		return nil
	}
}
