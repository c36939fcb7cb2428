// Package cognito implements identity.Provider against an Amazon Cognito user
// pool. Only the public-client calls are used, so requests go out with
// anonymous credentials.
package cognito

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/aws/smithy-go"
	"github.com/jrsteele09/media-admin/identity"
	"github.com/jrsteele09/media-admin/internal/errors"
	"github.com/jrsteele09/media-admin/sessions"
	"github.com/rs/zerolog/log"
)

const (
	defaultRegion         = "us-east-1"
	defaultRequestTimeout = 15 * time.Second
)

var _ identity.Provider = (*Client)(nil)

// API is the subset of the Cognito SDK client used here.
type API interface {
	InitiateAuth(ctx context.Context, params *cognitoidentityprovider.InitiateAuthInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.InitiateAuthOutput, error)
	RespondToAuthChallenge(ctx context.Context, params *cognitoidentityprovider.RespondToAuthChallengeInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.RespondToAuthChallengeOutput, error)
}

type Config struct {
	// Endpoint overrides the regional endpoint, e.g. for a local emulator.
	Endpoint   string
	Region     string
	UserPoolID string
	ClientID   string
}

type Client struct {
	config Config
	api    API
}

// New builds a client on the AWS SDK. Retries are left to the caller.
func New(config Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultRequestTimeout}
	}
	region := config.Region
	if region == "" {
		region = defaultRegion
	}

	api := cognitoidentityprovider.NewFromConfig(aws.Config{
		Region:      region,
		Credentials: aws.AnonymousCredentials{},
		HTTPClient:  httpClient,
	}, func(o *cognitoidentityprovider.Options) {
		o.RetryMaxAttempts = 1
		if config.Endpoint != "" {
			o.BaseEndpoint = aws.String(config.Endpoint)
		}
	})
	return NewWithAPI(config, api)
}

func NewWithAPI(config Config, api API) *Client {
	return &Client{config: config, api: api}
}

func (c *Client) SignIn(ctx context.Context, email, password string) (identity.SignInResult, error) {
	if err := c.validateConfig(); err != nil {
		return identity.SignInResult{}, err
	}

	out, err := c.api.InitiateAuth(ctx, &cognitoidentityprovider.InitiateAuthInput{
		AuthFlow:       types.AuthFlowTypeUserPasswordAuth,
		ClientId:       aws.String(c.config.ClientID),
		AuthParameters: map[string]string{"USERNAME": email, "PASSWORD": password},
	})
	if err != nil {
		return identity.SignInResult{}, mapError(ctx, "InitiateAuth", err)
	}

	if out.ChallengeName == types.ChallengeNameTypeNewPasswordRequired && aws.ToString(out.Session) != "" {
		challengeEmail := out.ChallengeParameters["USERNAME"]
		if challengeEmail == "" {
			challengeEmail = email
		}
		return identity.SignInResult{Challenge: &identity.NewPasswordChallenge{Session: aws.ToString(out.Session), Email: challengeEmail}}, nil
	}

	session, ok := sessionFromResult(out.AuthenticationResult, "")
	if !ok {
		return identity.SignInResult{}, errors.Unauthorized("Authentication failed: Invalid response", "")
	}
	return identity.SignInResult{Session: &session}, nil
}

func (c *Client) RespondToNewPasswordChallenge(ctx context.Context, challenge identity.NewPasswordChallenge, newPassword string) (sessions.Session, error) {
	if err := c.validateConfig(); err != nil {
		return sessions.Session{}, err
	}

	out, err := c.api.RespondToAuthChallenge(ctx, &cognitoidentityprovider.RespondToAuthChallengeInput{
		ClientId:           aws.String(c.config.ClientID),
		ChallengeName:      types.ChallengeNameTypeNewPasswordRequired,
		Session:            aws.String(challenge.Session),
		ChallengeResponses: map[string]string{"USERNAME": challenge.Email, "NEW_PASSWORD": newPassword},
	})
	if err != nil {
		return sessions.Session{}, mapError(ctx, "RespondToAuthChallenge", err)
	}

	session, ok := sessionFromResult(out.AuthenticationResult, "")
	if !ok {
		return sessions.Session{}, errors.New(errors.CodeOperationFailed, "Failed to set new password: Invalid response")
	}
	return session, nil
}

// Refresh exchanges a refresh token. Cognito does not rotate refresh tokens
// on this flow, so the one passed in is carried over when none is returned.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (sessions.Session, error) {
	if err := c.validateConfig(); err != nil {
		return sessions.Session{}, err
	}

	out, err := c.api.InitiateAuth(ctx, &cognitoidentityprovider.InitiateAuthInput{
		AuthFlow:       types.AuthFlowTypeRefreshTokenAuth,
		ClientId:       aws.String(c.config.ClientID),
		AuthParameters: map[string]string{"REFRESH_TOKEN": refreshToken},
	})
	if err != nil {
		return sessions.Session{}, mapError(ctx, "InitiateAuth", err)
	}

	session, ok := sessionFromResult(out.AuthenticationResult, refreshToken)
	if !ok {
		return sessions.Session{}, errors.TokenExpired("Failed to refresh session: Invalid response", "")
	}
	return session, nil
}

func (c *Client) validateConfig() error {
	if c.config.UserPoolID == "" || c.config.ClientID == "" {
		return errors.Validation("Cognito configuration missing. Please set USER_POOL_ID and USER_POOL_CLIENT_ID", "")
	}
	return nil
}

func sessionFromResult(result *types.AuthenticationResultType, fallbackRefreshToken string) (sessions.Session, bool) {
	if result == nil || aws.ToString(result.AccessToken) == "" || aws.ToString(result.IdToken) == "" {
		return sessions.Session{}, false
	}
	refreshToken := aws.ToString(result.RefreshToken)
	if refreshToken == "" {
		refreshToken = fallbackRefreshToken
	}
	if refreshToken == "" {
		return sessions.Session{}, false
	}
	return sessions.NewSession(aws.ToString(result.AccessToken), aws.ToString(result.IdToken), refreshToken,
		int64(result.ExpiresIn), sessions.NowTimeFunc()), true
}

func mapError(ctx context.Context, operation string, err error) error {
	var (
		notAuthorized *types.NotAuthorizedException
		notConfirmed  *types.UserNotConfirmedException
		badPassword   *types.InvalidPasswordException
		throttled     *types.TooManyRequestsException
		apiErr        smithy.APIError
	)
	switch {
	case stderrors.As(err, &notAuthorized):
		return errors.InvalidCredentials("Incorrect email or password", notAuthorized.ErrorMessage())
	case stderrors.As(err, &notConfirmed):
		return errors.Unauthorized("User account is not confirmed", notConfirmed.ErrorMessage())
	case stderrors.As(err, &badPassword):
		return errors.Validation("Password does not meet requirements. Must be at least 8 characters with uppercase, lowercase, numbers, and symbols.", badPassword.ErrorMessage())
	case stderrors.As(err, &throttled):
		return errors.RateLimited("Too many attempts. Please try again later.", throttled.ErrorMessage())
	case stderrors.As(err, &apiErr):
		log.Ctx(ctx).Debug().Str("operation", operation).Str("code", apiErr.ErrorCode()).Msg("cognito call failed")
		message := apiErr.ErrorMessage()
		if message == "" {
			message = "Authentication failed"
		}
		opts := []errors.Option{errors.WithCause(err)}
		var respErr *awshttp.ResponseError
		if stderrors.As(err, &respErr) {
			opts = append(opts, errors.WithStatus(respErr.HTTPStatusCode()))
		}
		return errors.New(errors.CodeUnknownError, message, opts...)
	}
	return errors.Network("Unable to reach the identity provider", err.Error(), err)
}
