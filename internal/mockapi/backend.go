package mockapi

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"kycportal/internal/domain"
	id "kycportal/pkg/domain"
	dErrors "kycportal/pkg/domain-errors"
)

const msgInvalidCredentials = "Invalid email or password"

// Backend is the in-memory state behind the mock API.
type Backend struct {
	mu       sync.RWMutex
	now      func() time.Time
	accounts map[string]*account
	byID     map[id.UserID]*account
	profiles map[id.UserID]domain.PersonalInfo
	clients  map[id.UserID]domain.Client
	kyc      map[id.UserID]domain.KYCData
	reviews  []domain.Review
}

// NewBackend loads raw YAML seed data; nil means the embedded seed.
func NewBackend(raw []byte, cost int, now func() time.Time) (*Backend, error) {
	if raw == nil {
		raw = defaultSeed
	}
	accounts, clients, err := parseSeed(raw, cost, now())
	if err != nil {
		return nil, err
	}
	b := &Backend{
		now:      now,
		accounts: make(map[string]*account, len(accounts)),
		byID:     make(map[id.UserID]*account, len(accounts)),
		profiles: make(map[id.UserID]domain.PersonalInfo),
		clients:  make(map[id.UserID]domain.Client, len(clients)),
		kyc:      make(map[id.UserID]domain.KYCData),
	}
	for i := range accounts {
		a := &accounts[i]
		b.accounts[strings.ToLower(a.identity.Email)] = a
		b.byID[a.identity.ID] = a
		if a.identity.PersonalInfo != nil {
			b.profiles[a.identity.ID] = a.identity.PersonalInfo.Clone()
		}
	}
	for _, c := range clients {
		b.clients[c.ID] = c
	}
	return b, nil
}

// Authenticate checks credentials. Unknown emails and wrong passwords fail
// with the same message.
func (b *Backend) Authenticate(email, password string) (domain.Identity, error) {
	b.mu.RLock()
	a, ok := b.accounts[strings.ToLower(strings.TrimSpace(email))]
	b.mu.RUnlock()
	if !ok {
		return domain.Identity{}, dErrors.New(dErrors.CodeUnauthorized, msgInvalidCredentials)
	}
	if err := bcrypt.CompareHashAndPassword(a.hash, []byte(password)); err != nil {
		return domain.Identity{}, dErrors.New(dErrors.CodeUnauthorized, msgInvalidCredentials)
	}
	return b.Identity(a.identity.ID)
}

// Identity returns the user with its latest profile.
func (b *Backend) Identity(userID id.UserID) (domain.Identity, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	a, ok := b.byID[userID]
	if !ok {
		return domain.Identity{}, dErrors.New(dErrors.CodeNotFound, "user not found")
	}
	out := a.identity.Clone()
	if info, ok := b.profiles[userID]; ok {
		cp := info.Clone()
		out.PersonalInfo = &cp
		out.Name = cp.FullName()
	}
	return out, nil
}

func (b *Backend) Profile(userID id.UserID) (domain.PersonalInfo, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	info, ok := b.profiles[userID]
	if !ok {
		return domain.PersonalInfo{}, dErrors.New(dErrors.CodeNotFound, "profile not found")
	}
	return info.Clone(), nil
}

// UpdateProfile stores info for userID, keeping the record id and creation
// time. The matching client row follows the new name.
func (b *Backend) UpdateProfile(userID id.UserID, info domain.PersonalInfo) (domain.PersonalInfo, error) {
	now := b.now()
	b.mu.Lock()
	defer b.mu.Unlock()

	prev, exists := b.profiles[userID]
	info = info.Clone()
	info.UserID = userID
	if exists {
		info.ID = prev.ID
		info.CreatedAt = prev.CreatedAt
	} else {
		if info.ID == "" {
			info.ID = "p" + string(userID)
		}
		info.CreatedAt = now
	}
	info.UpdatedAt = now
	if dob, ok := domain.ParseDate(info.DateOfBirth); ok {
		info.Age = domain.AgeOn(dob, now)
	}
	b.profiles[userID] = info

	if c, ok := b.clients[userID]; ok {
		if name := info.FullName(); name != "" {
			c.Name = name
		}
		c.LastUpdated = now
		b.clients[userID] = c
	}
	return info.Clone(), nil
}

// Clients lists clients ordered by id.
func (b *Backend) Clients() []domain.Client {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]domain.Client, 0, len(b.clients))
	for _, c := range b.clients {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return lessID(out[i].ID, out[j].ID) })
	return out
}

func (b *Backend) Client(clientID id.UserID) (domain.Client, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	c, ok := b.clients[clientID]
	if !ok {
		return domain.Client{}, dErrors.New(dErrors.CodeNotFound, "client not found")
	}
	return c, nil
}

// Search matches query against client name and email, case-insensitively.
func (b *Backend) Search(query string) []domain.Client {
	q := strings.ToLower(strings.TrimSpace(query))
	all := b.Clients()
	if q == "" {
		return all
	}
	out := make([]domain.Client, 0, len(all))
	for _, c := range all {
		if strings.Contains(strings.ToLower(c.Name), q) || strings.Contains(strings.ToLower(c.Email), q) {
			out = append(out, c)
		}
	}
	return out
}

// SubmitKYC stores snap as the user's submission and marks the client
// pending. A resubmission keeps the submission id and creation time.
func (b *Backend) SubmitKYC(snap domain.KYCSnapshot) (domain.KYCData, error) {
	if snap.UserID.IsZero() {
		return domain.KYCData{}, dErrors.New(dErrors.CodeBadRequest, "userId is required")
	}
	now := b.now()
	b.mu.Lock()
	defer b.mu.Unlock()

	data := domain.KYCData{
		ID:          domain.KYCIDFor(snap.UserID),
		Status:      domain.KYCPending,
		CreatedAt:   now,
		UpdatedAt:   now,
		KYCSnapshot: snap,
	}
	if prev, ok := b.kyc[snap.UserID]; ok {
		data.CreatedAt = prev.CreatedAt
	}
	b.kyc[snap.UserID] = data

	c, ok := b.clients[snap.UserID]
	if !ok {
		c = domain.Client{ID: snap.UserID}
		if a, found := b.byID[snap.UserID]; found {
			c.Name = a.identity.Name
			c.Email = a.identity.Email
		}
	}
	c.KYCStatus = domain.KYCPending
	c.LastUpdated = now
	b.clients[snap.UserID] = c
	return data, nil
}

func (b *Backend) KYC(userID id.UserID) (domain.KYCData, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	data, ok := b.kyc[userID]
	if !ok {
		return domain.KYCData{}, dErrors.New(dErrors.CodeNotFound, "KYC data not found")
	}
	return data, nil
}

// SubmitReview records an officer decision and moves the client and its
// submission to the decided status.
func (b *Backend) SubmitReview(req domain.ReviewRequest) (domain.Review, error) {
	if !req.Status.IsValid() {
		return domain.Review{}, dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("invalid review status %q", req.Status))
	}
	if req.UserID.IsZero() {
		return domain.Review{}, dErrors.New(dErrors.CodeBadRequest, "userId is required")
	}
	now := b.now()
	b.mu.Lock()
	defer b.mu.Unlock()

	c, ok := b.clients[req.UserID]
	if !ok {
		return domain.Review{}, dErrors.New(dErrors.CodeNotFound, "client not found")
	}
	review := domain.Review{
		ID:         id.ReviewID(uuid.NewString()),
		UserID:     req.UserID,
		KYCID:      req.KYCID,
		ReviewerID: req.ReviewerID,
		Status:     req.Status,
		Comments:   req.Comments,
		ReviewedAt: now,
	}
	b.reviews = append(b.reviews, review)

	c.KYCStatus = req.Status.KYCStatus()
	c.LastUpdated = now
	b.clients[req.UserID] = c
	if data, ok := b.kyc[req.UserID]; ok {
		data.Status = req.Status.KYCStatus()
		data.UpdatedAt = now
		b.kyc[req.UserID] = data
	}
	return review, nil
}

// Reviews lists every review, newest first.
func (b *Backend) Reviews() []domain.Review {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]domain.Review, len(b.reviews))
	for i, r := range b.reviews {
		out[len(out)-1-i] = r
	}
	return out
}

func (b *Backend) ReviewsByUser(userID id.UserID) []domain.Review {
	all := b.Reviews()
	out := make([]domain.Review, 0, len(all))
	for _, r := range all {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out
}

// lessID orders numeric ids numerically and everything else lexically.
func lessID(a, b id.UserID) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}
