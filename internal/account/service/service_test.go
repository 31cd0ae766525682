package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"greengate/internal/account/models"
	"greengate/internal/account/store"
	"greengate/internal/audit"
	"greengate/internal/threshold"
	"greengate/internal/token"
	dErrors "greengate/pkg/domain-errors"
	"greengate/pkg/requestcontext"
)

// fakeGateway records sent messages and can be told to fail.
type fakeGateway struct {
	sent []sentSMS
	fail bool
}

type sentSMS struct {
	mobile  string
	message string
}

func (g *fakeGateway) SendSMS(_ context.Context, mobile, message string) error {
	if g.fail {
		return fmt.Errorf("gateway unavailable")
	}
	g.sent = append(g.sent, sentSMS{mobile: mobile, message: message})
	return nil
}

// fakeOtpGen returns a fixed code so tests know what to submit.
type fakeOtpGen struct {
	code string
}

func (g *fakeOtpGen) Generate(length int) (string, error) {
	if len(g.code) != length {
		return "", fmt.Errorf("fake generator configured for length %d, asked for %d", len(g.code), length)
	}
	return g.code, nil
}

// fakeHasher is a transparent stand-in for bcrypt so the suite stays fast.
type fakeHasher struct{}

func (fakeHasher) Hash(code string) (string, error) { return "h:" + code, nil }
func (fakeHasher) Verify(hash, code string) bool    { return hash == "h:"+code }

func (fakeHasher) Authenticate(_ context.Context, account *models.Account, plain string) error {
	if account.PasswordHash != "h:"+plain {
		return dErrors.New(dErrors.CodeInvalidCredentials, "invalid credentials")
	}
	return nil
}

// fakeIssuer mints predictable tokens.
type fakeIssuer struct {
	issued int
}

func (f *fakeIssuer) Issue(username, role string, _ time.Time) (token.Pair, error) {
	f.issued++
	return token.Pair{
		AccessToken:  fmt.Sprintf("access-%s-%s-%d", username, role, f.issued),
		RefreshToken: fmt.Sprintf("refresh-%s-%s-%d", username, role, f.issued),
		ExpiresIn:    900,
	}, nil
}

type ServiceSuite struct {
	suite.Suite
	accounts   *store.InMemoryAccountStore
	thresholds *threshold.InMemoryStore
	gateway    *fakeGateway
	issuer     *fakeIssuer
	auditStore *audit.InMemoryStore
	svc        *Service
	now        time.Time
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.accounts = store.NewInMemory()
	s.thresholds = threshold.NewInMemory(map[string]string{
		threshold.OtpLength:                    "6",
		threshold.OtpMessage:                   "Your verification code is <otp>",
		threshold.OtpExpiredTime:               "300",
		threshold.OtpVerifyAttempts:            "3",
		threshold.LoginAttempts:                "3",
		threshold.LoginAttemptsExceededMessage: "Your account has been locked, please contact support",
	})
	s.gateway = &fakeGateway{}
	s.issuer = &fakeIssuer{}
	s.auditStore = audit.NewInMemoryStore()
	s.now = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	var err error
	s.svc, err = New(s.accounts, s.thresholds, s.gateway, s.issuer,
		WithOtpGenerator(&fakeOtpGen{code: "482913"}),
		WithOtpHasher(fakeHasher{}),
		WithPasswordHasher(fakeHasher{}),
		WithAuthenticator(fakeHasher{}),
		WithAuditPublisher(audit.NewPublisher(s.auditStore)),
	)
	s.Require().NoError(err)
}

func (s *ServiceSuite) ctx() context.Context {
	return requestcontext.WithTime(context.Background(), s.now)
}

func (s *ServiceSuite) ctxAt(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}

func (s *ServiceSuite) register() *RegisterInitResult {
	res, err := s.svc.RegisterInit(s.ctx(), RegisterInitRequest{
		NIC:      "N1",
		Mobile:   "0771234567",
		Email:    "a@x.com",
		RoleType: models.RoleAppUser,
	})
	s.Require().NoError(err)
	return res
}

// registerVerified walks an account through init + OTP verification.
func (s *ServiceSuite) registerVerified() *RegisterInitResult {
	res := s.register()
	_, err := s.svc.VerifyOtp(s.ctx(), VerifyOtpRequest{Username: res.Username, Otp: "482913"})
	s.Require().NoError(err)
	return res
}

// registerActive walks an account all the way to ACTIVE with password "pw".
func (s *ServiceSuite) registerActive() *RegisterInitResult {
	res := s.registerVerified()
	_, err := s.svc.SetupDetails(s.ctx(), SetupDetailsRequest{
		Username: res.Username,
		RoleType: models.RoleAppUser,
		FullName: "Amara Silva",
		City:     "Colombo",
		Password: "pw",
	})
	s.Require().NoError(err)
	_, err = s.svc.Activate(s.ctx(), res.Username)
	s.Require().NoError(err)
	return res
}

func (s *ServiceSuite) account(username string) *models.Account {
	a, err := s.accounts.FindByUsername(context.Background(), username)
	s.Require().NoError(err)
	s.Require().NotNil(a)
	return a
}

func (s *ServiceSuite) TestRegisterInit() {
	s.Run("creates a pending account and dispatches the code", func() {
		res := s.register()

		s.NotEmpty(res.Username)
		s.Equal("+94771234567", res.Mobile)
		s.Contains(res.Roles, models.RoleAppUser)
		s.True(res.OtpDelivered)

		account := s.account(res.Username)
		s.Equal(models.StatusPending, account.Status)
		s.Equal(models.OtpStatusSent, account.OtpStatus)
		s.Equal(1, account.OtpAttempts)
		s.Equal("h:482913", account.OtpHash)

		s.Require().Len(s.gateway.sent, 1)
		s.Equal("+94771234567", s.gateway.sent[0].mobile)
		s.Equal("Your verification code is 482913", s.gateway.sent[0].message)
	})

	s.Run("identical details return the same handle, never a duplicate", func() {
		first := s.register()
		second := s.register()
		s.Equal(first.Username, second.Username)

		account := s.account(first.Username)
		// both initiations issued a code
		s.GreaterOrEqual(account.OtpAttempts, 2)
	})
}

func (s *ServiceSuite) TestRegisterInit_Conflict() {
	s.register()

	s.Run("partial overlap with a distinct account is rejected", func() {
		_, err := s.svc.RegisterInit(s.ctx(), RegisterInitRequest{
			NIC:      "N2",
			Mobile:   "0779999999",
			Email:    "a@x.com", // collides
			RoleType: models.RoleAppUser,
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("no record was created by the rejected attempt", func() {
		got, err := s.accounts.FindByNaturalKey(context.Background(), "N2", "+94779999999", "none@x.com")
		s.Require().NoError(err)
		s.Empty(got)
	})
}

func (s *ServiceSuite) TestRegisterInit_Validation() {
	s.Run("unknown role", func() {
		_, err := s.svc.RegisterInit(s.ctx(), RegisterInitRequest{
			NIC: "N1", Mobile: "0771234567", Email: "a@x.com", RoleType: "ROLE_ADMIN",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeNoSuchRole))
	})

	s.Run("government users must carry a gov id", func() {
		_, err := s.svc.RegisterInit(s.ctx(), RegisterInitRequest{
			NIC: "N1", Mobile: "0771234567", Email: "a@x.com", RoleType: models.RoleGovernmentUser,
		})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unparseable phone", func() {
		_, err := s.svc.RegisterInit(s.ctx(), RegisterInitRequest{
			NIC: "N1", Mobile: "garbage", Email: "a@x.com", RoleType: models.RoleAppUser,
		})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *ServiceSuite) TestRegisterInit_GatewayFailure() {
	s.gateway.fail = true
	res := s.register()

	s.False(res.OtpDelivered, "initiation still succeeds with delivery pending")
	account := s.account(res.Username)
	s.Equal(models.OtpStatusFailed, account.OtpStatus)
	s.Equal(models.StatusPending, account.Status)
}

func (s *ServiceSuite) TestRegisterInit_MissingThreshold() {
	s.thresholds.Delete(threshold.OtpLength)
	_, err := s.svc.RegisterInit(s.ctx(), RegisterInitRequest{
		NIC: "N1", Mobile: "0771234567", Email: "a@x.com", RoleType: models.RoleAppUser,
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConfigurationMissing))
}

func (s *ServiceSuite) TestVerifyOtp() {
	res := s.register()

	s.Run("correct code verifies and resets both counters", func() {
		got, err := s.svc.VerifyOtp(s.ctx(), VerifyOtpRequest{Username: res.Username, Otp: "482913"})
		s.Require().NoError(err)
		s.Equal(string(models.StatusVerified), got.Status)

		account := s.account(res.Username)
		s.Equal(models.StatusVerified, account.Status)
		s.Equal(models.OtpStatusVerified, account.OtpStatus)
		s.Zero(account.OtpAttempts)
		s.Zero(account.VerifyAttempts)
	})

	s.Run("a spent code cannot be verified again", func() {
		_, err := s.svc.VerifyOtp(s.ctx(), VerifyOtpRequest{Username: res.Username, Otp: "482913"})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeAlreadyVerified))
	})
}

func (s *ServiceSuite) TestVerifyOtp_AttemptBudget() {
	res := s.register()

	wrong := func() (*VerifyOtpResult, error) {
		return s.svc.VerifyOtp(s.ctx(), VerifyOtpRequest{Username: res.Username, Otp: "000000"})
	}

	s.Run("remaining attempts count down 2, 1, 0", func() {
		for _, want := range []int{2, 1, 0} {
			got, err := wrong()
			s.Require().Error(err)
			s.True(dErrors.HasCode(err, dErrors.CodeInvalidOtp))
			s.Require().NotNil(got)
			s.Equal(want, got.RemainingAttempts)
		}
	})

	s.Run("the budget gone, even the correct code is refused", func() {
		_, err := s.svc.VerifyOtp(s.ctx(), VerifyOtpRequest{Username: res.Username, Otp: "482913"})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeAttemptsExceeded))
	})
}

func (s *ServiceSuite) TestVerifyOtp_Expiry() {
	res := s.register()

	s.Run("still valid at exactly issue time plus expiry", func() {
		at := s.now.Add(300 * time.Second)
		got, err := s.svc.VerifyOtp(s.ctxAt(at), VerifyOtpRequest{Username: res.Username, Otp: "482913"})
		s.Require().NoError(err)
		s.Equal(string(models.StatusVerified), got.Status)
	})

	s.Run("expired one instant later", func() {
		res2, err := s.svc.RegisterInit(s.ctx(), RegisterInitRequest{
			NIC: "N2", Mobile: "0772222222", Email: "b@x.com", RoleType: models.RoleAppUser,
		})
		s.Require().NoError(err)

		at := s.now.Add(300*time.Second + time.Nanosecond)
		_, err = s.svc.VerifyOtp(s.ctxAt(at), VerifyOtpRequest{Username: res2.Username, Otp: "482913"})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeExpired))
	})
}

func (s *ServiceSuite) TestVerifyOtp_Preconditions() {
	s.Run("unknown user", func() {
		_, err := s.svc.VerifyOtp(s.ctx(), VerifyOtpRequest{Username: "usr_missing", Otp: "482913"})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("missing expiry threshold is fatal", func() {
		res := s.register()
		s.thresholds.Delete(threshold.OtpExpiredTime)
		_, err := s.svc.VerifyOtp(s.ctx(), VerifyOtpRequest{Username: res.Username, Otp: "482913"})
		s.True(dErrors.HasCode(err, dErrors.CodeConfigurationMissing))
	})
}

func (s *ServiceSuite) TestResendOtp() {
	res := s.register()

	s.Run("a failed attempt is forgiven by a fresh issuance", func() {
		_, err := s.svc.VerifyOtp(s.ctx(), VerifyOtpRequest{Username: res.Username, Otp: "000000"})
		s.Require().Error(err)

		reissued, err := s.svc.ResendOtp(s.ctx(), res.Username)
		s.Require().NoError(err)
		s.True(reissued.OtpDelivered)

		account := s.account(res.Username)
		s.Zero(account.VerifyAttempts)
		s.Equal(2, account.OtpAttempts)
	})

	s.Run("verified accounts cannot ask for another code", func() {
		_, err := s.svc.VerifyOtp(s.ctx(), VerifyOtpRequest{Username: res.Username, Otp: "482913"})
		s.Require().NoError(err)

		_, err = s.svc.ResendOtp(s.ctx(), res.Username)
		s.True(dErrors.HasCode(err, dErrors.CodeAlreadyVerified))
	})
}

func (s *ServiceSuite) TestSetupDetails() {
	res := s.registerVerified()

	s.Run("stores profile, hashes password, moves to SAVED", func() {
		got, err := s.svc.SetupDetails(s.ctx(), SetupDetailsRequest{
			Username:      res.Username,
			RoleType:      models.RoleAppUser,
			FullName:      "Amara Silva",
			AddressNo:     "12",
			AddressStreet: "Galle Road",
			City:          "Colombo",
			PostalCode:    "00300",
			DateOfBirth:   "1990-04-12",
			Password:      "pw",
		})
		s.Require().NoError(err)
		s.NotEmpty(got.Tokens.AccessToken)
		s.NotEmpty(got.Tokens.RefreshToken)
		s.Equal("Amara Silva", got.User.FullName)
		s.Equal(string(models.StatusSaved), got.User.Status)

		account := s.account(res.Username)
		s.Equal(models.StatusSaved, account.Status)
		s.Equal("h:pw", account.PasswordHash)
		s.Equal(s.now, account.RegisteredAt)
	})

	s.Run("repeat setup overwrites and mints fresh tokens", func() {
		again, err := s.svc.SetupDetails(s.ctx(), SetupDetailsRequest{
			Username: res.Username,
			RoleType: models.RoleAppUser,
			FullName: "Amara de Silva",
			Password: "pw2",
		})
		s.Require().NoError(err)
		s.Equal("Amara de Silva", again.User.FullName)
		s.Equal("h:pw2", s.account(res.Username).PasswordHash)
	})

	s.Run("role not attached to the account", func() {
		_, err := s.svc.SetupDetails(s.ctx(), SetupDetailsRequest{
			Username: res.Username,
			RoleType: models.RoleGovernmentUser,
			Password: "pw",
		})
		s.True(dErrors.HasCode(err, dErrors.CodePermissionDenied))
	})

	s.Run("unknown user", func() {
		_, err := s.svc.SetupDetails(s.ctx(), SetupDetailsRequest{Username: "usr_missing", RoleType: models.RoleAppUser, Password: "pw"})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestGovSignUp() {
	govID := int64(700)
	res, err := s.svc.RegisterInit(s.ctx(), RegisterInitRequest{
		NIC: "N9", Mobile: "0773333333", Email: "gov@x.com", GovID: &govID,
		RoleType: models.RoleGovernmentUser,
	})
	s.Require().NoError(err)
	_, err = s.svc.VerifyOtp(s.ctx(), VerifyOtpRequest{Username: res.Username, Otp: "482913"})
	s.Require().NoError(err)

	s.Run("saves the narrow government profile", func() {
		got, err := s.svc.GovSignUp(s.ctx(), GovSignUpRequest{
			Username: res.Username,
			Name:     "B. Perera",
			City:     "Kandy",
			Password: "pw",
		})
		s.Require().NoError(err)
		s.Equal("B. Perera", got.User.FullName)
		s.Equal("Kandy", got.User.City)
		s.Equal("gov@x.com", got.User.Email)
		s.Require().NotNil(got.User.GovID)
		s.Equal(govID, *got.User.GovID)
		s.Equal(string(models.StatusSaved), got.User.Status)
	})

	s.Run("rejects accounts without the government role", func() {
		appRes := s.register()
		_, err := s.svc.GovSignUp(s.ctx(), GovSignUpRequest{Username: appRes.Username, Password: "pw"})
		s.True(dErrors.HasCode(err, dErrors.CodePermissionDenied))
	})
}

func (s *ServiceSuite) TestLogin() {
	res := s.registerActive()

	s.Run("correct password issues tokens and a profile", func() {
		got, err := s.svc.Login(s.ctx(), LoginRequest{
			Email: "a@x.com", Password: "pw", RoleType: models.RoleAppUser,
		})
		s.Require().NoError(err)
		s.NotEmpty(got.Tokens.AccessToken)
		s.Equal("Amara Silva", got.User.FullName)
		s.Equal("a@x.com", got.User.Email)
		s.Equal(string(models.StatusActive), got.User.Status)
	})

	s.Run("success resets the login budget", func() {
		_, err := s.svc.Login(s.ctx(), LoginRequest{Email: "a@x.com", Password: "wrong", RoleType: models.RoleAppUser})
		s.Require().Error(err)
		s.Equal(1, s.account(res.Username).LoginAttempts)

		_, err = s.svc.Login(s.ctx(), LoginRequest{Email: "a@x.com", Password: "pw", RoleType: models.RoleAppUser})
		s.Require().NoError(err)
		s.Zero(s.account(res.Username).LoginAttempts)
	})

	s.Run("unknown email", func() {
		_, err := s.svc.Login(s.ctx(), LoginRequest{Email: "who@x.com", Password: "pw"})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestLogin_FailClosedBeforePassword() {
	res := s.registerVerified()
	_, err := s.svc.SetupDetails(s.ctx(), SetupDetailsRequest{
		Username: res.Username, RoleType: models.RoleAppUser, Password: "pw",
	})
	s.Require().NoError(err)

	// Account is SAVED, not ACTIVE: the correct password must not matter.
	_, err = s.svc.Login(s.ctx(), LoginRequest{Email: "a@x.com", Password: "pw", RoleType: models.RoleAppUser})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeDisabled))
}

func (s *ServiceSuite) TestLogin_Lockout() {
	res := s.registerActive()

	badLogin := func() (*LoginResult, error) {
		return s.svc.Login(s.ctx(), LoginRequest{Email: "a@x.com", Password: "wrong", RoleType: models.RoleAppUser})
	}

	s.Run("first two failures report remaining attempts", func() {
		for _, want := range []int{2, 1} {
			got, err := badLogin()
			s.Require().Error(err)
			s.True(dErrors.HasCode(err, dErrors.CodeInvalidCredentials))
			s.Require().NotNil(got)
			s.Equal(want, got.RemainingAttempts)
		}
	})

	s.Run("the third failure locks the account and sends one notice", func() {
		smsBefore := len(s.gateway.sent)

		_, err := badLogin()
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeAttemptsExceeded))

		account := s.account(res.Username)
		s.Equal(models.StatusDisabled, account.Status)
		s.Equal("login attempts exceeded", account.DisabledReason)

		s.Require().Len(s.gateway.sent, smsBefore+1)
		s.Contains(s.gateway.sent[len(s.gateway.sent)-1].message, "locked")
	})

	s.Run("a disabled account rejects even the correct password, with no second notice", func() {
		smsBefore := len(s.gateway.sent)

		_, err := s.svc.Login(s.ctx(), LoginRequest{Email: "a@x.com", Password: "pw", RoleType: models.RoleAppUser})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeDisabled))

		s.Len(s.gateway.sent, smsBefore)
		s.Equal(3, s.account(res.Username).LoginAttempts, "no counting happens once disabled")
	})
}

func (s *ServiceSuite) TestLogin_MissingLockoutThresholds() {
	s.registerActive()

	s.Run("missing attempts threshold is fatal", func() {
		s.thresholds.Delete(threshold.LoginAttempts)
		_, err := s.svc.Login(s.ctx(), LoginRequest{Email: "a@x.com", Password: "wrong", RoleType: models.RoleAppUser})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConfigurationMissing))
		s.thresholds.Set(threshold.LoginAttempts, "3")
	})
}

func (s *ServiceSuite) TestActivate() {
	res := s.registerVerified()

	s.Run("only SAVED accounts can be activated", func() {
		_, err := s.svc.Activate(s.ctx(), res.Username)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	s.Run("moves SAVED to ACTIVE", func() {
		_, err := s.svc.SetupDetails(s.ctx(), SetupDetailsRequest{
			Username: res.Username, RoleType: models.RoleAppUser, FullName: "Amara Silva", Password: "pw",
		})
		s.Require().NoError(err)

		got, err := s.svc.Activate(s.ctx(), res.Username)
		s.Require().NoError(err)
		s.Equal(string(models.StatusActive), got.Status)
	})

	s.Run("unknown user", func() {
		_, err := s.svc.Activate(s.ctx(), "usr_missing")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestAuditTrail() {
	res := s.registerActive()
	account := s.account(res.Username)

	events, err := s.auditStore.ListByAccount(context.Background(), account.ID)
	s.Require().NoError(err)

	var actions []string
	for _, e := range events {
		actions = append(actions, e.Action)
	}
	s.Contains(actions, audit.ActionUserInitiated)
	s.Contains(actions, audit.ActionOtpSent)
	s.Contains(actions, audit.ActionOtpVerified)
	s.Contains(actions, audit.ActionUserSaved)
	s.Contains(actions, audit.ActionAccountActivated)
}
