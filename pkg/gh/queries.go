package gh

// GraphQL query documents. Every document selects the rateLimit block so the
// quota gate is refreshed with authoritative server values on each round trip.

// repositoryFields is the shared selection for repository nodes, including the
// README blob so each page returns full detail in a single request.
const repositoryFields = `
        nameWithOwner
        name
        description
        url
        homepageUrl
        createdAt
        updatedAt
        pushedAt
        stargazerCount
        forkCount
        diskUsage
        primaryLanguage {
          name
        }
        languages(first: 10) {
          nodes {
            name
          }
        }
        repositoryTopics(first: 20) {
          nodes {
            topic {
              name
            }
          }
        }
        licenseInfo {
          key
          name
        }
        isFork
        isArchived
        isPrivate
        isTemplate
        hasWikiEnabled
        hasIssuesEnabled
        watchers {
          totalCount
        }
        issues(states: OPEN) {
          totalCount
        }
        owner {
          login
          __typename
          ... on User {
            location
            company
            bio
            email
            followers {
              totalCount
            }
            createdAt
          }
          ... on Organization {
            location
            email
            description
          }
        }
        object(expression: "HEAD:README.md") {
          ... on Blob {
            text
          }
        }`

// searchRepositoriesQuery pages through a repository search, fetching full
// repository detail plus README content in one round trip per page.
const searchRepositoriesQuery = `
query SearchRepos($query: String!, $first: Int!, $after: String) {
  search(query: $query, type: REPOSITORY, first: $first, after: $after) {
    pageInfo {
      hasNextPage
      endCursor
    }
    repositoryCount
    nodes {
      ... on Repository {` + repositoryFields + `
      }
    }
  }
  rateLimit {
    remaining
    resetAt
    limit
    cost
  }
}`

// countAccountsQuery probes the total match count of an account search.
const countAccountsQuery = `
query CountAccounts($query: String!) {
  search(query: $query, type: USER, first: 1) {
    userCount
  }
  rateLimit {
    remaining
    resetAt
    limit
  }
}`

// countRepositoriesQuery probes the total match count of a repository search.
const countRepositoriesQuery = `
query CountRepos($query: String!) {
  search(query: $query, type: REPOSITORY, first: 1) {
    repositoryCount
  }
  rateLimit {
    remaining
    resetAt
    limit
  }
}`

// searchAccountsQuery pages through an account search, yielding logins with
// the profile fields that get denormalized onto repository rows.
const searchAccountsQuery = `
query SearchAccounts($query: String!, $first: Int!, $after: String) {
  search(query: $query, type: USER, first: $first, after: $after) {
    userCount
    pageInfo {
      hasNextPage
      endCursor
    }
    nodes {
      ... on User {
        login
        __typename
        location
        company
        bio
        email
        followers {
          totalCount
        }
        createdAt
      }
      ... on Organization {
        login
        __typename
        location
        email
        description
      }
    }
  }
  rateLimit {
    remaining
    resetAt
    limit
  }
}`

// singleRepositoryQuery fetches one repository by exact owner and name,
// bypassing search entirely.
const singleRepositoryQuery = `
query GetRepo($owner: String!, $name: String!) {
  repository(owner: $owner, name: $name) {` + repositoryFields + `
  }
  rateLimit {
    remaining
    resetAt
    limit
    cost
  }
}`

// rateLimitQuery probes the current quota without touching search.
const rateLimitQuery = `
query RateLimit {
  rateLimit {
    remaining
    resetAt
    limit
    cost
  }
}`
