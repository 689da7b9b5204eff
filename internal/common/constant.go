package common

// Header names carrying payment credentials on unlock requests.
const (
	TransactionSignatureHeader = "X-Transaction-Signature"
	WalletAddressHeader        = "X-Wallet-Address"
)

// ServiceName identifies the service in health responses and gRPC health checks.
const ServiceName = "premiumgate"
