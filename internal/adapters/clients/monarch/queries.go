package monarch

// Operation names sent as operationName.
const (
	opGetTransactions   = "GetTransactionsList"
	opGetCategories     = "GetCategories"
	opUpdateTransaction = "Web_TransactionDrawerUpdateTransaction"
	opSplitTransaction  = "Common_SplitTransactionMutation"
)

const payloadErrorFragment = `
fragment PayloadErrorFields on PayloadError {
  fieldErrors {
    field
    messages
    __typename
  }
  message
  code
  __typename
}`

const getTransactionsQuery = `
query GetTransactionsList($offset: Int, $limit: Int, $filters: TransactionFilterInput, $orderBy: TransactionOrdering) {
  allTransactions(filters: $filters) {
    totalCount
    results(offset: $offset, limit: $limit, orderBy: $orderBy) {
      id
      ...TransactionOverviewFields
      __typename
    }
    __typename
  }
}

fragment TransactionOverviewFields on Transaction {
  id
  amount
  pending
  date
  originalDate
  hideFromReports
  plaidName
  notes
  isRecurring
  reviewStatus
  needsReview
  isSplitTransaction
  createdAt
  updatedAt
  category {
    id
    name
    icon
    __typename
  }
  merchant {
    name
    id
    __typename
  }
  account {
    id
    displayName
    __typename
  }
  tags {
    id
    name
    color
    __typename
  }
  splitTransactions {
    id
    amount
    notes
    merchant {
      id
      name
      __typename
    }
    category {
      id
      name
      __typename
    }
    __typename
  }
  __typename
}`

const getCategoriesQuery = `
query GetCategories {
  categories {
    ...CategoryFields
    __typename
  }
}

fragment CategoryFields on Category {
  id
  order
  name
  icon
  isSystemCategory
  isDisabled
  group {
    id
    name
    type
    __typename
  }
  __typename
}`

const updateTransactionMutation = `
mutation Web_TransactionDrawerUpdateTransaction($input: UpdateTransactionMutationInput!) {
  updateTransaction(input: $input) {
    transaction {
      id
      __typename
    }
    errors {
      ...PayloadErrorFields
      __typename
    }
    __typename
  }
}
` + payloadErrorFragment

const splitTransactionMutation = `
mutation Common_SplitTransactionMutation($input: UpdateTransactionSplitMutationInput!) {
  updateTransactionSplit(input: $input) {
    errors {
      ...PayloadErrorFields
      __typename
    }
    transaction {
      id
      hasSplitTransactions
      __typename
    }
    __typename
  }
}
` + payloadErrorFragment
