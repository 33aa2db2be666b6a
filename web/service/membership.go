package service

import (
	"fmt"
	"hash/fnv"

	"github.com/Retroinn/MotoCrew/database/model"

	"github.com/skip2/go-qrcode"
)

// MembershipCard is the digital card shown in the member's wallet.
type MembershipCard struct {
	Number          string               `json:"number"`
	Name            string               `json:"name"`
	Nickname        string               `json:"nickname"`
	Plan            model.MembershipPlan `json:"plan"`
	Role            model.UserRole       `json:"role"`
	Points          int                  `json:"points"`
	MotorcycleModel string               `json:"motorcycleModel"`
}

type MembershipService struct{}

// CardNumber is stable per member: the same account always prints the same
// number on its card.
func (s *MembershipService) CardNumber(userID string) string {
	h := fnv.New32a()
	h.Write([]byte(userID))
	return fmt.Sprintf("#YE-%05d", h.Sum32()%100000)
}

func (s *MembershipService) CardFor(user *model.User) *MembershipCard {
	return &MembershipCard{
		Number:          s.CardNumber(user.ID),
		Name:            user.Name,
		Nickname:        user.Nickname,
		Plan:            user.MembershipPlan,
		Role:            user.Role,
		Points:          user.Points,
		MotorcycleModel: user.MotorcycleModel,
	}
}

// CardQR renders the verification QR for the card as a PNG.
func (s *MembershipService) CardQR(user *model.User, size int) ([]byte, error) {
	if size <= 0 {
		size = 256
	}
	payload := fmt.Sprintf("motocrew:member:%s:%s", user.ID, s.CardNumber(user.ID))
	return qrcode.Encode(payload, qrcode.Medium, size)
}
