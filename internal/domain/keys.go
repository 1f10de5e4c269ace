package domain

// KeyPrefix namespaces every key this service writes into the document store.
const KeyPrefix = "expanders360:"

// DefaultWindowDays is the trailing analytics window used when none is given.
const DefaultWindowDays = 30

// DefaultTopN is the number of vendors kept per country in analytics reports.
const DefaultTopN = 3
