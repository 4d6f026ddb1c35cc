package common

// AuthorizationHeaderName is the HTTP header carrying the bearer token on
// authenticated requests.
const AuthorizationHeaderName = "Authorization"

// VerificationCodeLength is the number of digits in a verification code.
const VerificationCodeLength = 6
