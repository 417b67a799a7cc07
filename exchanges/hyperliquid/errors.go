package hyperliquid

import "errors"

var (
	errPrivateKeyRequiredForSignedAction = errors.New("hyperliquid: private key required for signed action")
	errUnexpectedHTTPStatus              = errors.New("hyperliquid: unexpected HTTP status")
	errInvalidOrderType                  = errors.New("hyperliquid: order must have either limit or trigger type")
	errOrderRequestMissing               = errors.New("hyperliquid: order request missing")
	errNoOrdersSupplied                  = errors.New("hyperliquid: no orders supplied")
	errCancelBatchNoRequests             = errors.New("hyperliquid: no cancel requests supplied")
	errCancelRequestMissingOrderID       = errors.New("hyperliquid: cancel request missing order id")
	errResponseMissing                   = errors.New("hyperliquid: response missing")
	errResponseStatusesEmpty             = errors.New("hyperliquid: response contained no statuses")
	errActionStatusNotOK                 = errors.New("hyperliquid: action status not ok")
	errExchangeStatusEntryError          = errors.New("hyperliquid: exchange status error")
	errNegativeNonceTimestamp            = errors.New("hyperliquid: negative nonce timestamp")
	errExpiresAfterUnsupported           = errors.New("hyperliquid: expiresAfter unsupported for user-signed actions")
	errPerpMetaNoMarkets                 = errors.New("hyperliquid: perpetual meta contained no markets")
	errMetaAndAssetContextsMalformed     = errors.New("hyperliquid: metaAndAssetCtxs payload malformed")
	errDestinationRequired               = errors.New("hyperliquid: destination address required")
	errWithdrawRequestNil                = errors.New("hyperliquid: withdraw request nil")
	errUSDSendRequestNil                 = errors.New("hyperliquid: usd send request nil")
	errLeverageOutOfRange                = errors.New("hyperliquid: leverage out of range")
)
