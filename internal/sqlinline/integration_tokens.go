package sqlinline

const QCreateIntegrationTokens = `--sql 3c1f7a2e-94b0-4d6e-a5c8-0e2b7d91f4a6
create table if not exists integration_tokens (
    id uuid primary key default gen_random_uuid(),
    provider text not null unique,
    token text not null,
    properties jsonb not null default '{}'::jsonb,
    created_at timestamptz not null default now(),
    updated_at timestamptz not null default now()
);
`

const QSelectIntegrationToken = `--sql 5b7e2d90-1c4a-4f8e-9b63-d2a0c7e41f58
select token
from integration_tokens
where provider = $1::text
limit 1;
`

const QUpsertIntegrationToken = `--sql e09a4c71-6d2b-4b3f-8f15-7a9c3e5d2b40
with incoming as (
    select
        $1::text as provider,
        $2::text as token,
        coalesce($3::jsonb, '{}'::jsonb) as properties
)
insert into integration_tokens (id, provider, token, properties, created_at, updated_at)
values (gen_random_uuid(), (select provider from incoming), (select token from incoming), (select properties from incoming), now(), now())
on conflict (provider) do update set
    token = excluded.token,
    properties = excluded.properties,
    updated_at = now();
`
