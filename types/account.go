package types

// Account is a user's credit balance. Credits never go negative.
type Account struct {
	Credits int64 `json:"credits"`
}

// AccountIndex maps a user identifier to its account. On disk it is a plain
// JSON object of user -> {"credits": n}.
type AccountIndex map[string]*Account

// Init implements storage.Initer.
func (idx *AccountIndex) Init() {
	if *idx == nil {
		*idx = make(AccountIndex)
	}
}

// GetOrCreate returns the account for user, creating a zero-balance account
// if none exists yet.
func (idx AccountIndex) GetOrCreate(user string) *Account {
	acct := idx[user]
	if acct == nil {
		acct = &Account{}
		idx[user] = acct
	}
	return acct
}

// Balance returns user's balance without creating an account.
func (idx AccountIndex) Balance(user string) int64 {
	if acct := idx[user]; acct != nil {
		return acct.Credits
	}
	return 0
}
