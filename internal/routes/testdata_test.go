package routes

const validRoutesYAML = `
public:
  - /
  - /sign-in
  - /sign-up
  - /auth/*
  - /pricing

auth_required:
  - /verify-email
  - /account/*

license_required:
  - /dashboard
  - /budgets/*
  - /clients/*

email_confirmation_required:
  - /dashboard
  - /budgets/*
  - /clients/*
  - /renew
  - /no-license

redirects:
  sign_in: /sign-in
  verify_email: /verify-email
  renew: /renew
  no_license: /no-license
  unclassified: /

unclassified_policy: deny
`
