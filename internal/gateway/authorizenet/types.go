package authorizenet

import "github.com/shopspring/decimal"

// Wire types for the Authorize.Net JSON API. Requests are wrapped in a single
// operation key; responses come back unwrapped.

type merchantAuthentication struct {
	Name           string `json:"name"`
	TransactionKey string `json:"transactionKey"`
}

type apiMessage struct {
	Code string `json:"code"`
	Text string `json:"text"`
}

type apiMessages struct {
	ResultCode string       `json:"resultCode"`
	Message    []apiMessage `json:"message"`
}

func (m apiMessages) ok() bool {
	return m.ResultCode == "Ok"
}

func (m apiMessages) first() apiMessage {
	if len(m.Message) == 0 {
		return apiMessage{Code: "E00000", Text: "no message returned"}
	}
	return m.Message[0]
}

type creditCard struct {
	CardNumber     string `json:"cardNumber"`
	ExpirationDate string `json:"expirationDate"`
}

type payment struct {
	CreditCard creditCard `json:"creditCard"`
}

type customerAddress struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Address   string `json:"address,omitempty"`
	City      string `json:"city,omitempty"`
	State     string `json:"state,omitempty"`
	Zip       string `json:"zip,omitempty"`
	Country   string `json:"country,omitempty"`
}

type paymentProfile struct {
	CustomerType string          `json:"customerType,omitempty"`
	BillTo       customerAddress `json:"billTo"`
	Payment      payment         `json:"payment"`
}

type customerProfile struct {
	MerchantCustomerID string           `json:"merchantCustomerId"`
	Email              string           `json:"email"`
	PaymentProfiles    []paymentProfile `json:"paymentProfiles"`
}

type createCustomerProfileRequest struct {
	CreateCustomerProfileRequest struct {
		MerchantAuthentication merchantAuthentication `json:"merchantAuthentication"`
		RefID                  string                 `json:"refId"`
		Profile                customerProfile        `json:"profile"`
		ValidationMode         string                 `json:"validationMode"`
	} `json:"createCustomerProfileRequest"`
}

type createCustomerProfileResponse struct {
	CustomerProfileID            string      `json:"customerProfileId"`
	CustomerPaymentProfileIDList []string    `json:"customerPaymentProfileIdList"`
	Messages                     apiMessages `json:"messages"`
}

type paymentProfileEx struct {
	CustomerPaymentProfileID string          `json:"customerPaymentProfileId"`
	BillTo                   customerAddress `json:"billTo"`
	Payment                  payment         `json:"payment"`
}

type updateCustomerPaymentProfileRequest struct {
	UpdateCustomerPaymentProfileRequest struct {
		MerchantAuthentication merchantAuthentication `json:"merchantAuthentication"`
		RefID                  string                 `json:"refId"`
		CustomerProfileID      string                 `json:"customerProfileId"`
		PaymentProfile         paymentProfileEx       `json:"paymentProfile"`
	} `json:"updateCustomerPaymentProfileRequest"`
}

type deleteCustomerProfileRequest struct {
	DeleteCustomerProfileRequest struct {
		MerchantAuthentication merchantAuthentication `json:"merchantAuthentication"`
		RefID                  string                 `json:"refId"`
		CustomerProfileID      string                 `json:"customerProfileId"`
	} `json:"deleteCustomerProfileRequest"`
}

type messagesOnlyResponse struct {
	Messages apiMessages `json:"messages"`
}

type order struct {
	Description string `json:"description,omitempty"`
}

type profileToCharge struct {
	CustomerProfileID string `json:"customerProfileId"`
	PaymentProfile    struct {
		PaymentProfileID string `json:"paymentProfileId"`
	} `json:"paymentProfile"`
}

type transactionRequest struct {
	TransactionType string          `json:"transactionType"`
	Amount          decimal.Decimal `json:"amount"`
	CurrencyCode    string          `json:"currencyCode,omitempty"`
	Profile         profileToCharge `json:"profile"`
	Order           order           `json:"order,omitempty"`
}

type createTransactionRequest struct {
	CreateTransactionRequest struct {
		MerchantAuthentication merchantAuthentication `json:"merchantAuthentication"`
		RefID                  string                 `json:"refId"`
		TransactionRequest     transactionRequest     `json:"transactionRequest"`
	} `json:"createTransactionRequest"`
}

type transactionResponse struct {
	ResponseCode string `json:"responseCode"`
	AuthCode     string `json:"authCode"`
	TransID      string `json:"transId"`
}

type createTransactionResponse struct {
	TransactionResponse *transactionResponse `json:"transactionResponse"`
	Messages            apiMessages          `json:"messages"`
}

type paymentScheduleInterval struct {
	Length int    `json:"length"`
	Unit   string `json:"unit"`
}

type paymentSchedule struct {
	Interval         paymentScheduleInterval `json:"interval"`
	StartDate        string                  `json:"startDate"`
	TotalOccurrences int                     `json:"totalOccurrences"`
	TrialOccurrences int                     `json:"trialOccurrences"`
}

type subscriptionProfile struct {
	CustomerProfileID        string `json:"customerProfileId"`
	CustomerPaymentProfileID string `json:"customerPaymentProfileId"`
}

type arbSubscription struct {
	Name            string              `json:"name"`
	PaymentSchedule paymentSchedule     `json:"paymentSchedule"`
	Amount          decimal.Decimal     `json:"amount"`
	TrialAmount     decimal.Decimal     `json:"trialAmount"`
	Profile         subscriptionProfile `json:"profile"`
}

type arbCreateSubscriptionRequest struct {
	ARBCreateSubscriptionRequest struct {
		MerchantAuthentication merchantAuthentication `json:"merchantAuthentication"`
		RefID                  string                 `json:"refId"`
		Subscription           arbSubscription        `json:"subscription"`
	} `json:"ARBCreateSubscriptionRequest"`
}

type arbCreateSubscriptionResponse struct {
	SubscriptionID string      `json:"subscriptionId"`
	Messages       apiMessages `json:"messages"`
}

type arbCancelSubscriptionRequest struct {
	ARBCancelSubscriptionRequest struct {
		MerchantAuthentication merchantAuthentication `json:"merchantAuthentication"`
		RefID                  string                 `json:"refId"`
		SubscriptionID         string                 `json:"subscriptionId"`
	} `json:"ARBCancelSubscriptionRequest"`
}

type arbGetSubscriptionRequest struct {
	ARBGetSubscriptionRequest struct {
		MerchantAuthentication merchantAuthentication `json:"merchantAuthentication"`
		RefID                  string                 `json:"refId"`
		SubscriptionID         string                 `json:"subscriptionId"`
	} `json:"ARBGetSubscriptionRequest"`
}

type arbGetSubscriptionResponse struct {
	Subscription struct {
		Name   string          `json:"name"`
		Status string          `json:"status"`
		Amount decimal.Decimal `json:"amount"`
		Profile struct {
			CustomerProfileID string `json:"customerProfileId"`
			Description       string `json:"description"`
		} `json:"profile"`
	} `json:"subscription"`
	Messages apiMessages `json:"messages"`
}

type getTransactionDetailsRequest struct {
	GetTransactionDetailsRequest struct {
		MerchantAuthentication merchantAuthentication `json:"merchantAuthentication"`
		RefID                  string                 `json:"refId"`
		TransID                string                 `json:"transId"`
	} `json:"getTransactionDetailsRequest"`
}

type getTransactionDetailsResponse struct {
	Transaction struct {
		TransID           string          `json:"transId"`
		TransactionStatus string          `json:"transactionStatus"`
		AuthAmount        decimal.Decimal `json:"authAmount"`
	} `json:"transaction"`
	Messages apiMessages `json:"messages"`
}
